package service

import (
	"path"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/pkg/shell"
)

var shellQuote = shell.Quote

// escapedWriteCommand writes content with printf and single-quote escaping.
// It cannot carry NUL bytes; callers use it only after the binary-safe path failed.
func escapedWriteCommand(p string, content []byte) string {
	var sb strings.Builder
	if dir := path.Dir(p); dir != "." && dir != "/" {
		sb.WriteString("mkdir -p ")
		sb.WriteString(shellQuote(dir))
		sb.WriteString(" && ")
	}
	sb.WriteString("printf '%s' ")
	sb.WriteString(shellQuote(string(content)))
	sb.WriteString(" > ")
	sb.WriteString(shellQuote(p))
	return sb.String()
}
