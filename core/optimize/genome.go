package optimize

import "math/rand"

// Permutation is a chromosome: an ordering of cluster ids in which the
// decoder should consider execution batches. Every id in [0,n) appears
// exactly once.
type Permutation []int

// Valid reports whether the permutation covers 0..n-1 exactly once.
func (p Permutation) Valid(n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Clone returns an independent copy.
func (p Permutation) Clone() Permutation {
	return append(Permutation(nil), p...)
}

func randomPermutation(n int, rng *rand.Rand) Permutation {
	return Permutation(rng.Perm(n))
}

// orderCrossover applies OX: a contiguous segment of the first parent is
// preserved, the remainder is filled in the second parent's relative order.
// Parents are never written to.
func orderCrossover(a, b Permutation, rng *rand.Rand) (Permutation, Permutation) {
	n := len(a)
	if n < 2 {
		return a.Clone(), b.Clone()
	}
	i := rng.Intn(n)
	j := rng.Intn(n)
	if i > j {
		i, j = j, i
	}
	return oxChild(a, b, i, j), oxChild(b, a, i, j)
}

func oxChild(keep, fill Permutation, i, j int) Permutation {
	n := len(keep)
	child := make(Permutation, n)
	inSeg := make([]bool, n)
	for k := i; k <= j; k++ {
		child[k] = keep[k]
		inSeg[keep[k]] = true
	}
	pos := (j + 1) % n
	for k := 0; k < n; k++ {
		v := fill[(j+1+k)%n]
		if inSeg[v] {
			continue
		}
		child[pos] = v
		pos = (pos + 1) % n
	}
	return child
}

// mutate applies per-gene exchange mutation on a copy: each position swaps
// with a random other position with probability pm (the neighbor position
// half the time).
func mutate(p Permutation, pm float64, rng *rand.Rand) Permutation {
	out := p.Clone()
	n := len(out)
	if n < 2 {
		return out
	}
	for i := 0; i < n; i++ {
		if rng.Float64() >= pm {
			continue
		}
		var j int
		if rng.Float64() < 0.5 {
			j = (i + 1) % n
		} else {
			j = rng.Intn(n)
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}
