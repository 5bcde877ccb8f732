package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/ingestion-e2e/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ingestion-test-runner version %s\n", common.GetFullVersion())
	},
}
