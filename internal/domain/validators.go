package domain

import (
	"slices"
	"strings"
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DedupeDistricts drops repeated district codes, keeping first-seen order.
func DedupeDistricts(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// DistrictLabel renders a district code for display: "nuwara_eliya" -> "nuwara eliya".
func DistrictLabel(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}

// VolunteerTypeLabel splits a camelCase volunteer type into words: "wellCleaning" -> "well Cleaning".
func VolunteerTypeLabel(t string) string {
	var b strings.Builder
	for i, r := range t {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
