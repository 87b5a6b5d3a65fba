package capture

import (
	"context"
	"strings"
	"testing"
)

func TestPlanSteps(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     int
	}{
		{"typicalNarration", 60, 120},
		{"cappedAtMax", 300, maxFrames},
		{"atLeastOneFrame", 0.1, 1},
		{"zeroDuration", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := planSteps(tt.duration); got != tt.want {
				t.Errorf("planSteps(%v) = %d, want %d", tt.duration, got, tt.want)
			}
		})
	}
}

func TestScrollableHeight(t *testing.T) {
	// Tall page: viewport subtracted.
	if got := scrollableHeight(5000); got != 3800 {
		t.Errorf("scrollableHeight(5000) = %v, want 3800", got)
	}
	// Short page: the 70% floor wins over the subtraction.
	if got := scrollableHeight(1500); got != 1050 {
		t.Errorf("scrollableHeight(1500) = %v, want 1050", got)
	}
}

func TestEasedPositionIsMonotonic(t *testing.T) {
	const steps = 100
	const height = 4000.0

	prev := -1.0
	for i := 0; i < steps; i++ {
		pos := easedPosition(i, steps, height)
		if pos < prev {
			t.Fatalf("position decreased at step %d: %v < %v", i, pos, prev)
		}
		if pos < 0 || pos > height {
			t.Fatalf("position %v out of range at step %d", pos, i)
		}
		prev = pos
	}

	// Smoothstep: the first tenth of steps covers far less than a tenth
	// of the distance.
	early := easedPosition(steps/10, steps, height)
	if early > height/10 {
		t.Errorf("easing too linear: step %d at %v", steps/10, early)
	}
}

func TestCaptureScrollRejectsInvalidURL(t *testing.T) {
	c := New(Options{})
	_, err := c.CaptureScroll(context.Background(), "https://example.com/posts/undefined", 10, t.TempDir())
	if err == nil {
		t.Fatal("expected error for url containing undefined")
	}
	if !strings.Contains(err.Error(), "invalid article url") {
		t.Errorf("unexpected error: %v", err)
	}
}
