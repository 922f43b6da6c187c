package gocanon

// Permutation is a bijection on vertex IDs: p[v] is the image of vertex v.
type Permutation []VtxID

// NewIdentity returns the identity permutation on n vertices.
func NewIdentity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = VtxID(i)
	}
	return p
}

// IsValid returns whether p is a bijection on 0..len(p)-1.
func (p Permutation) IsValid() bool {
	seen := make([]bool, len(p))
	for _, pi := range p {
		if pi < 0 || int(pi) >= len(p) || seen[pi] {
			return false
		}
		seen[pi] = true
	}
	return true
}

// IsIdentity returns whether p maps every vertex to itself.
func (p Permutation) IsIdentity() bool {
	for i, pi := range p {
		if VtxID(i) != pi {
			return false
		}
	}
	return true
}

// Compose returns the permutation q∘p: first p, then q.
func (p Permutation) Compose(q Permutation) Permutation {
	out := make(Permutation, len(p))
	for i, pi := range p {
		out[i] = q[pi]
	}
	return out
}

// Inverse returns p⁻¹.
func (p Permutation) Inverse() Permutation {
	out := make(Permutation, len(p))
	for i, pi := range p {
		out[pi] = VtxID(i)
	}
	return out
}

// Fixes returns whether p maps v to itself.
func (p Permutation) Fixes(v VtxID) bool {
	return p[v] == v
}

// MakeCopy returns a copy of p.
func (p Permutation) MakeCopy() Permutation {
	out := make(Permutation, len(p))
	copy(out, p)
	return out
}

func (p Permutation) key() string {
	b := make([]byte, 0, 4*len(p))
	for _, pi := range p {
		b = append(b, byte(pi), byte(pi>>8), byte(pi>>16), byte(pi>>24))
	}
	return string(b)
}

// GroupOrder computes the order of the group generated by gens acting on n
// vertices, by breadth-first closure. The closure is the full group, so this
// is exponential in the worst case; maxOrder caps the walk and a return of
// (0, false) means the cap was hit.
func GroupOrder(n int, gens []Permutation, maxOrder int) (order int, ok bool) {
	if n == 0 || len(gens) == 0 {
		return 1, true
	}

	id := NewIdentity(n)
	seen := map[string]Permutation{
		id.key(): id,
	}
	queue := []Permutation{id}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, g := range gens {
			pg := p.Compose(g)
			k := pg.key()
			if _, exists := seen[k]; exists {
				continue
			}
			if maxOrder > 0 && len(seen) >= maxOrder {
				return 0, false
			}
			seen[k] = pg
			queue = append(queue, pg)
		}
	}

	return len(seen), true
}
