package models

import "strings"

// NormalizeLabel canonicalizes a source label for matching: trimmed,
// trailing colon removed, lowercased, whitespace collapsed. The '#'
// character survives because inventory numbers depend on it.
func NormalizeLabel(raw string) string {
	label := strings.TrimSpace(raw)
	label = strings.TrimSuffix(label, ":")
	label = strings.ToLower(strings.TrimSpace(label))

	var b strings.Builder
	lastSpace := false
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '#', r == '.', r == '/':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n' || r == '_' || r == '-':
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
