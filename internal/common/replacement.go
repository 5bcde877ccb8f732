// -----------------------------------------------------------------------
// Last Modified: Friday, 16th October 2026 5:12:40 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

// The {key-name} syntax lets [credentials] values reference environment
// variables, so a CI secret can be mapped onto the name a connector reads.
//
// Example:
//
//	[credentials]
//	SNOWFLAKE_PASSWORD = "{CI_SNOWFLAKE_SECRET}"
//
// Replacement is case-sensitive. A credential with an unresolved reference is
// cleared and reported, so Credential falls back to the environment.
package common

import (
	"regexp"
	"sort"
)

// keyRefPattern matches {key-name} references in strings
// Allows alphanumeric characters, hyphens, and underscores
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces every {key-name} in input with the value
// from lookup. Keys lookup does not know are left unchanged and returned.
func ReplaceKeyReferences(input string, lookup func(string) (string, bool)) (string, []string) {
	if input == "" {
		return input, nil
	}

	var unresolved []string
	result := keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		keyName := match[1 : len(match)-1]
		if value, ok := lookup(keyName); ok {
			return value
		}
		unresolved = append(unresolved, keyName)
		return match
	})
	return result, unresolved
}

// MapLookup adapts a map to the lookup signature of ReplaceKeyReferences
func MapLookup(kvMap map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := kvMap[key]
		return v, ok
	}
}

// ResolveCredentials replaces references in the [credentials] table. It
// returns the credential names whose references could not be resolved;
// those credentials are cleared.
func (c *Config) ResolveCredentials(lookup func(string) (string, bool)) []string {
	var failed []string
	for name, value := range c.Credentials {
		resolved, unresolved := ReplaceKeyReferences(value, lookup)
		if len(unresolved) > 0 {
			c.Credentials[name] = ""
			failed = append(failed, name)
			continue
		}
		c.Credentials[name] = resolved
	}
	sort.Strings(failed)
	return failed
}
