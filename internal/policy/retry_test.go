package policy

import (
	"testing"
	"time"
)

func TestBackoff_Grows(t *testing.T) {
	// With +/-25% jitter, attempt n is bounded by [0.75, 1.25] * 2s * 2^(n-1)
	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, 1500 * time.Millisecond, 2500 * time.Millisecond},
		{2, 3 * time.Second, 5 * time.Second},
		{3, 6 * time.Second, 10 * time.Second},
	}

	for _, test := range tests {
		for i := 0; i < 50; i++ {
			d := Backoff(test.attempt)
			if d < test.min || d > test.max {
				t.Fatalf("Backoff(%d) = %v, expected within [%v, %v]", test.attempt, d, test.min, test.max)
			}
		}
	}
}

func TestBackoff_Capped(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := Backoff(30)
		if d > time.Duration(float64(2*time.Minute)*1.25) {
			t.Fatalf("Backoff(30) = %v, expected capped near 2m", d)
		}
	}
}

func TestBackoff_NonPositiveAttempt(t *testing.T) {
	d := Backoff(0)
	if d < 1500*time.Millisecond || d > 2500*time.Millisecond {
		t.Errorf("Backoff(0) = %v, expected first-attempt delay", d)
	}
}

func TestStalled(t *testing.T) {
	now := time.Now()

	if Stalled(now.Add(-10*time.Second), now, 90*time.Second) {
		t.Error("Expected recent progress not to count as stalled")
	}

	if !Stalled(now.Add(-2*time.Minute), now, 90*time.Second) {
		t.Error("Expected old progress to count as stalled")
	}

	if Stalled(time.Time{}, now, 90*time.Second) {
		t.Error("Expected zero lastProgress not to count as stalled")
	}

	// Non-positive threshold falls back to the default
	if Stalled(now.Add(-time.Minute), now, 0) {
		t.Error("Expected default threshold to apply when threshold is zero")
	}
	if !Stalled(now.Add(-3*time.Minute), now, 0) {
		t.Error("Expected default threshold breach to count as stalled")
	}
}
