package stock

import "testing"

func TestValidMovementType(t *testing.T) {
	valid := []string{MovementIn, MovementOut, MovementAdjustment, MovementReturn}
	for _, m := range valid {
		if !ValidMovementType(m) {
			t.Fatalf("expected %q to be valid", m)
		}
	}

	invalid := []string{"", "IN", "sale", "restock", "out "}
	for _, m := range invalid {
		if ValidMovementType(m) {
			t.Fatalf("expected %q to be invalid", m)
		}
	}
}

func TestNormalizeQuantity(t *testing.T) {
	cases := []struct {
		name         string
		movementType string
		quantity     int64
		expected     int64
	}{
		{"out flips positive to negative", MovementOut, 5, -5},
		{"out keeps negative", MovementOut, -5, -5},
		{"in flips negative to positive", MovementIn, -3, 3},
		{"in keeps positive", MovementIn, 3, 3},
		{"return flips negative to positive", MovementReturn, -2, 2},
		{"adjustment keeps positive", MovementAdjustment, 4, 4},
		{"adjustment keeps negative", MovementAdjustment, -4, -4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeQuantity(tc.movementType, tc.quantity); got != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}
