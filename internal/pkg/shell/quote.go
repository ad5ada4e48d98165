// Package shell builds sh command lines.
package shell

import "strings"

// Quote wraps s in single quotes so sh treats it as one literal word
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
