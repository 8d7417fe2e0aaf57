package systems

import (
	"testing"

	"tactics-sim/internal/domain"
)

func TestHasLineOfSight(t *testing.T) {
	// Карта 5x5
	// . . . . .
	// . . # . .  (2,1) - стена
	// . # # # .  (1,2), (2,2), (3,2) - стена
	// . . # . .  (2,3) - стена
	// . . . . .

	w := createTestWorld(5, 5)
	for _, p := range []domain.Position{{X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}, {X: 2, Y: 3}} {
		w.walls[p] = true
	}

	tests := []struct {
		name string
		p1   domain.Position
		p2   domain.Position
		want bool
	}{
		{"Clear horizontal", domain.Position{X: 0, Y: 0}, domain.Position{X: 4, Y: 0}, true},
		{"Blocked horizontal", domain.Position{X: 0, Y: 2}, domain.Position{X: 4, Y: 2}, false},
		{"Clear diagonal", domain.Position{X: 0, Y: 0}, domain.Position{X: 1, Y: 1}, true},
		{"Blocked diagonal", domain.Position{X: 0, Y: 0}, domain.Position{X: 4, Y: 4}, false},
		{"Adjacent wall", domain.Position{X: 2, Y: 1}, domain.Position{X: 2, Y: 2}, true},
		{"Behind wall", domain.Position{X: 2, Y: 1}, domain.Position{X: 2, Y: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLineOfSight(w, 0, tt.p1, tt.p2); got != tt.want {
				t.Errorf("HasLineOfSight(%v, %v) = %v, want %v", tt.p1, tt.p2, got, tt.want)
			}
		})
	}
}

func TestHasLineOfSightElevation(t *testing.T) {
	w := createTestWorld(5, 1)
	w.height[domain.Position{X: 2, Y: 0}] = 3

	from, to := domain.Position{X: 0, Y: 0}, domain.Position{X: 4, Y: 0}
	if HasLineOfSight(w, 1, from, to) {
		t.Error("High ground above tolerance should block sight")
	}
	if !HasLineOfSight(w, 3, from, to) {
		t.Error("High ground within tolerance should not block sight")
	}

	// С возвышенности видно поверх
	w.height[from] = 3
	if !HasLineOfSight(w, 0, from, to) {
		t.Error("Observer on high ground should see over equal elevation")
	}
}
