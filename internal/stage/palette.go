package stage

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is a linear colour with components in [0,1].
type RGB struct {
	R, G, B float64
}

// DefaultAccent is used when page metadata supplies no accent colour.
var DefaultAccent = RGB{R: 0.42, G: 0.62, B: 1.0}

func (c RGB) Scale(k float64) RGB {
	return RGB{R: c.R * k, G: c.G * k, B: c.B * k}
}

// Blend mixes c toward o by t (0 = c, 1 = o), clamped per channel.
func (c RGB) Blend(o RGB, t float64) RGB {
	t = clampF(t, 0, 1)
	return RGB{
		R: clampF(lerpF(c.R, o.R, t), 0, 1),
		G: clampF(lerpF(c.G, o.G, t), 0, 1),
		B: clampF(lerpF(c.B, o.B, t), 0, 1),
	}
}

// ParseAccent parses "#rrggbb" or "rrggbb". Invalid input falls back to
// DefaultAccent with an error for the caller to log.
func ParseAccent(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return DefaultAccent, fmt.Errorf("accent %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return DefaultAccent, fmt.Errorf("accent %q: %w", s, err)
	}
	return RGB{
		R: float64(v>>16&0xFF) / 255.0,
		G: float64(v>>8&0xFF) / 255.0,
		B: float64(v&0xFF) / 255.0,
	}, nil
}

var (
	colorWhite = RGB{R: 1, G: 1, B: 1}
	colorCyan  = RGB{R: 0.25, G: 0.9, B: 1}
)
