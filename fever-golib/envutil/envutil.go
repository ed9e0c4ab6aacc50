// Package envutil reads configuration defaults from the environment.
package envutil

import "os"

// GetenvDefault gets the value of an environment variable, or returns the
// specified default value if that variable is unset or empty.
func GetenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found || val == "" {
		return defaultValue
	}
	return val
}
