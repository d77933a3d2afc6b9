package inference

import "strings"

// NormalizeLabel makes service labels and catalog labels comparable:
// "Monstera_deliciosa", "Monstera Deliciosa" and "monstera  deliciosa" are equal.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.ReplaceAll(label, "_", " "))
	return strings.Join(strings.Fields(label), " ")
}
