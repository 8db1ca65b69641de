// Package transcript assembles recognized text fragments into the final
// transcript.
package transcript

import "strings"

// Assemble joins non-empty fragments with a single space, preserving
// order. Empty fragments are skipped so silence never introduces double
// spaces. Pure function, no failure modes.
func Assemble(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f == "" {
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}
