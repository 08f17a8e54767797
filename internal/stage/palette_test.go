package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAccent(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#ffffff", RGB{1, 1, 1}, false},
		{"000000", RGB{0, 0, 0}, false},
		{" #6b9eff ", RGB{R: 107.0 / 255, G: 158.0 / 255, B: 1}, false},
		{"", DefaultAccent, true},
		{"#fff", DefaultAccent, true},
		{"#zzzzzz", DefaultAccent, true},
	}
	for _, tt := range tests {
		got, err := ParseAccent(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
		assert.InDelta(t, tt.want.R, got.R, 1e-9, tt.in)
		assert.InDelta(t, tt.want.G, got.G, 1e-9, tt.in)
		assert.InDelta(t, tt.want.B, got.B, 1e-9, tt.in)
	}
}

func TestBlendClamps(t *testing.T) {
	a := RGB{R: 0.9, G: 0.9, B: 0.9}
	b := RGB{R: 2, G: -1, B: 0.5}

	out := a.Blend(b, 1)
	assert.Equal(t, RGB{R: 1, G: 0, B: 0.5}, out)

	// t outside [0,1] is clamped, not extrapolated.
	assert.Equal(t, a, a.Blend(b, -5))
}

func TestRandDeterministic(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.NextU64(), b.NextU64())
	}

	r := NewRand(7)
	for i := 0; i < 1000; i++ {
		v := r.RangeF(-2, 3)
		assert.GreaterOrEqual(t, v, -2.0)
		assert.Less(t, v, 3.0)
		assert.Less(t, r.Intn(10), 10)
	}
}
