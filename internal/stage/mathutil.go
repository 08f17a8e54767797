package stage

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerpF(a, b, t float64) float64 {
	return a + (b-a)*t
}

// approach moves cur toward target by at most maxDelta.
func approach(cur, target, maxDelta float64) float64 {
	if cur < target {
		cur += maxDelta
		if cur > target {
			cur = target
		}
		return cur
	}
	if cur > target {
		cur -= maxDelta
		if cur < target {
			cur = target
		}
	}
	return cur
}

// smoothstep maps t in [0,1] to an eased 0..1 curve.
func smoothstep(t float64) float64 {
	t = clampF(t, 0, 1)
	return t * t * (3 - 2*t)
}

// splitmix64 is a fast, high-quality 64-bit mixer.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Rand is a tiny deterministic RNG (xorshift64*).
type Rand struct {
	s uint64
}

func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = 1
	}
	return &Rand{s: seed}
}

func (r *Rand) NextU64() uint64 {
	x := r.s
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.s = x
	return x * 2685821657736338717
}

func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.NextU64() % uint64(n))
}

func (r *Rand) Float64() float64 {
	return float64(r.NextU64()>>11) * (1.0 / (1 << 53))
}

func (r *Rand) RangeF(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + (max-min)*r.Float64()
}
