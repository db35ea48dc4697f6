package shared

import "strings"

// Sentinel is the literal reply prompt the remote endpoint emits once it has
// finished producing output for a command. It doubles as the frame boundary
// for channel reads: there is no length prefix on this protocol.
const Sentinel = "shell> "

// Clean strips sentinel tokens and blank noise from raw channel output,
// producing the line sequence every higher-level parser consumes. Applying
// Clean to already-clean output is a no-op.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.ReplaceAll(line, Sentinel, ""))
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// CleanLines is Clean split into individual lines; empty input yields nil.
func CleanLines(text string) []string {
	clean := Clean(text)
	if clean == "" {
		return nil
	}
	return strings.Split(clean, "\n")
}
