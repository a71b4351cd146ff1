package handlers

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"Iced Latte", "iced-latte"},
		{"Nasi Goreng Spesial", "nasi-goreng-spesial"},
		{"  Extra!! Spicy??  ", "extra-spicy"},
		{"Combo #3 (Large)", "combo-3-large"},
		{"---", ""},
	}

	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.expected {
			t.Fatalf("slugify(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}
