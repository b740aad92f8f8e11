package metrics

import "strings"

// FormatSurnames returns the last word of each name, de-duplicated case-insensitively in first-seen order.
func FormatSurnames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		fields := strings.Fields(n)
		if len(fields) == 0 {
			continue
		}
		surname := fields[len(fields)-1]
		key := strings.ToLower(surname)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, surname)
	}
	return out
}
