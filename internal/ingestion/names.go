package ingestion

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// InvalidNames are service names the add-service form must reject
var InvalidNames = struct {
	MaxLength        string
	WithSpecialChars string
}{
	MaxLength:        strings.Repeat("a87439625b1c2d3e4f5061728394a5b6c7d8e90a1b2c3d4e5f67890ab", 2) + "Name can be a maximum of 128 characters",
	WithSpecialChars: "::normalName::",
}

// Form validation messages shown under the service name field
const (
	NameRequiredMessage = "Name is required"
	NamePatternMessage  = "Name must contain only letters, numbers, underscores, hyphens, periods, parenthesis, and ampersands."
)

// NewServiceName returns a unique service name for prefix. The name keeps a
// literal % so URL and search escaping are exercised on every run.
func NewServiceName(prefix string) string {
	return fmt.Sprintf("pw-%s-with-%%-%s", strings.ToLower(prefix), uuid.NewString()[:8])
}
