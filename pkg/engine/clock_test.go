package engine

import (
	"testing"
	"time"
)

func TestFrameClock_Delta(t *testing.T) {
	base := time.Unix(0, 0)
	tests := []struct {
		name     string
		elapsed  []time.Duration
		expected []float64
	}{
		{"first_call_is_zero", []time.Duration{0}, []float64{0}},
		{"regular_frames", []time.Duration{0, 16 * time.Millisecond, 16 * time.Millisecond}, []float64{0, 0.016, 0.016}},
		{"stall_is_capped", []time.Duration{0, 2 * time.Second}, []float64{0, 0.1}},
		{"clock_going_backwards", []time.Duration{0, -time.Second}, []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := base
			clock := NewFrameClock(100 * time.Millisecond)
			clock.now = func() time.Time { return now }

			for i, step := range tt.elapsed {
				now = now.Add(step)
				if got := clock.Delta(); got != tt.expected[i] {
					t.Errorf("call %d: Delta() = %v, expected %v", i, got, tt.expected[i])
				}
			}
		})
	}
}

func TestFrameClock_Reset(t *testing.T) {
	now := time.Unix(0, 0)
	clock := NewFrameClock(time.Second)
	clock.now = func() time.Time { return now }

	clock.Delta()
	now = now.Add(500 * time.Millisecond)
	clock.Reset()

	if got := clock.Delta(); got != 0 {
		t.Errorf("Delta() after Reset = %v, expected 0", got)
	}
	now = now.Add(250 * time.Millisecond)
	if got := clock.Delta(); got != 0.25 {
		t.Errorf("Delta() = %v, expected 0.25", got)
	}
}
