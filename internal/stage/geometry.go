package stage

import "math"

// mesh is interleaved position+normal vertex data with a triangle index.
type mesh struct {
	Verts   []float32 // x y z nx ny nz
	Indices []uint32
}

// icosphere builds a unit icosahedron subdivided n times. Normals equal
// the (unit) positions.
func icosphere(subdiv int) mesh {
	t := (1 + math.Sqrt(5)) / 2
	base := [][3]float64{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	faces := [][3]uint32{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	verts := make([][3]float64, 0, len(base))
	for _, v := range base {
		verts = append(verts, normalize3(v))
	}

	midCache := map[uint64]uint32{}
	midpoint := func(a, b uint32) uint32 {
		key := uint64(a)<<32 | uint64(b)
		if a > b {
			key = uint64(b)<<32 | uint64(a)
		}
		if idx, ok := midCache[key]; ok {
			return idx
		}
		va, vb := verts[a], verts[b]
		m := normalize3([3]float64{
			(va[0] + vb[0]) / 2,
			(va[1] + vb[1]) / 2,
			(va[2] + vb[2]) / 2,
		})
		verts = append(verts, m)
		idx := uint32(len(verts) - 1)
		midCache[key] = idx
		return idx
	}

	for s := 0; s < subdiv; s++ {
		next := make([][3]uint32, 0, len(faces)*4)
		for _, f := range faces {
			a := midpoint(f[0], f[1])
			b := midpoint(f[1], f[2])
			c := midpoint(f[2], f[0])
			next = append(next,
				[3]uint32{f[0], a, c},
				[3]uint32{f[1], b, a},
				[3]uint32{f[2], c, b},
				[3]uint32{a, b, c},
			)
		}
		faces = next
	}

	m := mesh{
		Verts:   make([]float32, 0, len(verts)*6),
		Indices: make([]uint32, 0, len(faces)*3),
	}
	for _, v := range verts {
		m.Verts = append(m.Verts,
			float32(v[0]), float32(v[1]), float32(v[2]),
			float32(v[0]), float32(v[1]), float32(v[2]))
	}
	for _, f := range faces {
		m.Indices = append(m.Indices, f[0], f[1], f[2])
	}
	return m
}

// torusKnot builds a (p,q) torus-knot tube.
func torusKnot(p, q, segments, sides int, radius, tube float64) mesh {
	curve := func(u float64) [3]float64 {
		cu := math.Cos(u)
		su := math.Sin(u)
		quOverP := float64(q) / float64(p) * u
		cs := math.Cos(quOverP)
		return [3]float64{
			radius * (2 + cs) * 0.5 * cu,
			radius * (2 + cs) * 0.5 * su,
			radius * math.Sin(quOverP) * 0.5,
		}
	}

	m := mesh{
		Verts:   make([]float32, 0, (segments+1)*(sides+1)*6),
		Indices: make([]uint32, 0, segments*sides*6),
	}
	for i := 0; i <= segments; i++ {
		u := float64(i) / float64(segments) * float64(p) * 2 * math.Pi
		p0 := curve(u)
		p1 := curve(u + 0.01)
		tangent := normalize3(sub3(p1, p0))
		// Frame from tangent and a stable helper axis.
		n := normalize3(cross3(tangent, [3]float64{0, 0, 1}))
		if math.Abs(tangent[2]) > 0.99 {
			n = normalize3(cross3(tangent, [3]float64{0, 1, 0}))
		}
		b := cross3(tangent, n)

		for j := 0; j <= sides; j++ {
			v := float64(j) / float64(sides) * 2 * math.Pi
			cv, sv := math.Cos(v), math.Sin(v)
			normal := [3]float64{
				cv*n[0] + sv*b[0],
				cv*n[1] + sv*b[1],
				cv*n[2] + sv*b[2],
			}
			pos := [3]float64{
				p0[0] + tube*normal[0],
				p0[1] + tube*normal[1],
				p0[2] + tube*normal[2],
			}
			m.Verts = append(m.Verts,
				float32(pos[0]), float32(pos[1]), float32(pos[2]),
				float32(normal[0]), float32(normal[1]), float32(normal[2]))
		}
	}
	stride := uint32(sides + 1)
	for i := 0; i < segments; i++ {
		for j := 0; j < sides; j++ {
			a := uint32(i)*stride + uint32(j)
			m.Indices = append(m.Indices,
				a, a+stride, a+1,
				a+1, a+stride, a+stride+1)
		}
	}
	return m
}

// starfield scatters points on a shell around the scene.
// Layout: x y z size per star.
func starfield(count int, seed uint64) []float32 {
	rng := NewRand(seed)
	buf := make([]float32, 0, count*4)
	for i := 0; i < count; i++ {
		// Uniform direction, radius biased outward.
		theta := rng.RangeF(0, 2*math.Pi)
		z := rng.RangeF(-1, 1)
		r := math.Sqrt(1 - z*z)
		dist := 18 + 60*math.Sqrt(rng.Float64())
		buf = append(buf,
			float32(r*math.Cos(theta)*dist),
			float32(r*math.Sin(theta)*dist),
			float32(z*dist),
			float32(rng.RangeF(1.0, 2.6)),
		)
	}
	return buf
}

// cubeMesh is the unit cube used for swarm instances.
func cubeMesh() mesh {
	type face struct {
		n [3]float32
		v [4][3]float32
	}
	faces := []face{
		{n: [3]float32{0, 0, 1}, v: [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
		{n: [3]float32{0, 0, -1}, v: [4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
		{n: [3]float32{1, 0, 0}, v: [4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
		{n: [3]float32{-1, 0, 0}, v: [4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
		{n: [3]float32{0, 1, 0}, v: [4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
		{n: [3]float32{0, -1, 0}, v: [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
	}
	var m mesh
	for _, f := range faces {
		base := uint32(len(m.Verts) / 6)
		for _, v := range f.v {
			m.Verts = append(m.Verts, v[0], v[1], v[2], f.n[0], f.n[1], f.n[2])
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

func normalize3(v [3]float64) [3]float64 {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
