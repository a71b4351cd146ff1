package utils

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestNumericToFloat64(t *testing.T) {
	cases := []struct {
		name     string
		numeric  pgtype.Numeric
		expected float64
	}{
		{
			name:     "invalid yields zero",
			numeric:  pgtype.Numeric{},
			expected: 0,
		},
		{
			name:     "whole number",
			numeric:  pgtype.Numeric{Int: big.NewInt(42), Exp: 0, Valid: true},
			expected: 42,
		},
		{
			name:     "two decimal places",
			numeric:  pgtype.Numeric{Int: big.NewInt(1430), Exp: -2, Valid: true},
			expected: 14.30,
		},
		{
			name:     "negative amount",
			numeric:  pgtype.Numeric{Int: big.NewInt(-570), Exp: -2, Valid: true},
			expected: -5.70,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NumericToFloat64(tc.numeric); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in       float64
		expected float64
	}{
		{1.005, 1.0},
		{1.015, 1.01},
		{14.299999999999999, 14.3},
		{-5.705, -5.7},
		{0, 0},
	}

	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.expected {
			t.Fatalf("Round2(%v): expected %v, got %v", tc.in, tc.expected, got)
		}
	}
}
