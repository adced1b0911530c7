package geometry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"traycore/pkg/domain"
)

func TestAxesPerRotation(t *testing.T) {
	letters := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	numbers := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	cases := []struct {
		rotation domain.Rotation
		x, y     []string
		xIsCol   bool
	}{
		{domain.Rotation0, letters, numbers, true},
		{domain.Rotation90, numbers, reversed(letters), false},
		{domain.Rotation180, reversed(letters), reversed(numbers), true},
		{domain.Rotation270, reversed(numbers), letters, false},
	}
	for _, tc := range cases {
		axes := New(plate(tc.rotation)).Axes()
		if axes.XIsColumn != tc.xIsCol {
			t.Fatalf("rotation %d: XIsColumn = %v", tc.rotation, axes.XIsColumn)
		}
		if diff := cmp.Diff(tc.x, axes.X); diff != "" {
			t.Fatalf("rotation %d x axis (-want +got):\n%s", tc.rotation, diff)
		}
		if diff := cmp.Diff(tc.y, axes.Y); diff != "" {
			t.Fatalf("rotation %d y axis (-want +got):\n%s", tc.rotation, diff)
		}
	}
}

func TestAxesAgreeWithRenderedLabels(t *testing.T) {
	for _, r := range allRotations {
		g := New(plate(r))
		axes := g.Axes()
		w, h := g.DisplaySize()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				want := axes.Y[y] + axes.X[x]
				if axes.XIsColumn {
					want = axes.X[x] + axes.Y[y]
				}
				if got := g.LabelAt(domain.DisplayCell{X: x, Y: y}); got != want {
					t.Fatalf("rotation %d at (%d,%d): header says %s, well says %s", r, x, y, want, got)
				}
			}
		}
	}
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
