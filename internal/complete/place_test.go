package complete

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlace(t *testing.T) {
	view := Size{Width: 80, Height: 24}
	popup := Size{Width: 30, Height: 10}

	tests := []struct {
		name   string
		anchor Point
		want   Point
	}{
		{"fits", Point{X: 10, Y: 5}, Point{X: 10, Y: 5}},
		{"right edge", Point{X: 60, Y: 5}, Point{X: 30, Y: 5}},
		{"bottom edge", Point{X: 10, Y: 20}, Point{X: 10, Y: 9}},
		{"both edges", Point{X: 70, Y: 22}, Point{X: 40, Y: 11}},
		{"clamped to origin", Point{X: 5, Y: 5}, Point{X: 0, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := view
			if tt.name == "clamped to origin" {
				v = Size{Width: 20, Height: 8}
			}
			assert.Equal(t, tt.want, Place(tt.anchor, popup, v, 1))
		})
	}
}
