package cluster

import "math/rand"

// kmeansRun holds the outcome of a single Lloyd's run.
type kmeansRun struct {
	assignment []int // row index -> cluster index
	centers    [][]float64
	sse        float64
}

// kmeansPlusPlus seeds k centers with the standard D^2-weighted rule, then
// iterates Lloyd's assignment/update steps until stable or maxIter.
func kmeans(rows [][]float64, k, maxIter int, rng *rand.Rand) kmeansRun {
	centers := seedCenters(rows, k, rng)
	assignment := make([]int, len(rows))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range rows {
			best := nearestCenter(row, centers)
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		centers = recomputeCenters(rows, assignment, k, centers)
		if !changed && iter > 0 {
			break
		}
	}

	sse := 0.0
	for i, row := range rows {
		sse += sqDist(row, centers[assignment[i]])
	}
	return kmeansRun{assignment: assignment, centers: centers, sse: sse}
}

func seedCenters(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	first := rng.Intn(len(rows))
	centers = append(centers, append([]float64(nil), rows[first]...))

	d2 := make([]float64, len(rows))
	for len(centers) < k {
		total := 0.0
		for i, row := range rows {
			d2[i] = sqDist(row, centers[nearestCenter(row, centers)])
			total += d2[i]
		}
		var next int
		if total == 0 {
			// All remaining points coincide with a center.
			next = rng.Intn(len(rows))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			for i := range rows {
				acc += d2[i]
				if acc >= target {
					next = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), rows[next]...))
	}
	return centers
}

// nearestCenter breaks distance ties by the lowest center index so
// assignments are reproducible.
func nearestCenter(row []float64, centers [][]float64) int {
	best := 0
	bestD := sqDist(row, centers[0])
	for c := 1; c < len(centers); c++ {
		if d := sqDist(row, centers[c]); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func recomputeCenters(rows [][]float64, assignment []int, k int, prev [][]float64) [][]float64 {
	dim := len(rows[0])
	centers := make([][]float64, k)
	counts := make([]int, k)
	for c := range centers {
		centers[c] = make([]float64, dim)
	}
	for i, row := range rows {
		c := assignment[i]
		counts[c]++
		for j, v := range row {
			centers[c][j] += v
		}
	}
	for c := range centers {
		if counts[c] == 0 {
			// Empty cluster keeps its previous center.
			copy(centers[c], prev[c])
			continue
		}
		for j := range centers[c] {
			centers[c][j] /= float64(counts[c])
		}
	}
	return centers
}

// silhouette computes the mean silhouette coefficient of the assignment.
// Singleton clusters contribute 0 for their member, matching the usual
// convention.
func silhouette(rows [][]float64, assignment []int, k int) float64 {
	if len(rows) < 2 || k < 2 {
		return 0
	}
	total := 0.0
	for i, row := range rows {
		own := assignment[i]
		sameCount := 0
		sameSum := 0.0
		otherSum := make([]float64, k)
		otherCount := make([]int, k)
		for j, other := range rows {
			if i == j {
				continue
			}
			d := dist(row, other)
			if assignment[j] == own {
				sameSum += d
				sameCount++
			} else {
				otherSum[assignment[j]] += d
				otherCount[assignment[j]]++
			}
		}
		if sameCount == 0 {
			continue
		}
		a := sameSum / float64(sameCount)
		b := -1.0
		for c := 0; c < k; c++ {
			if c == own || otherCount[c] == 0 {
				continue
			}
			mean := otherSum[c] / float64(otherCount[c])
			if b < 0 || mean < b {
				b = mean
			}
		}
		if b < 0 {
			continue
		}
		max := a
		if b > max {
			max = b
		}
		if max > 0 {
			total += (b - a) / max
		}
	}
	return total / float64(len(rows))
}

// elbowK picks the K with the largest second difference of the SSE curve,
// i.e. the sharpest drop in marginal improvement. With fewer than three
// points the smallest K wins.
func elbowK(ks []int, sse []float64) int {
	if len(ks) == 0 {
		return 0
	}
	if len(ks) < 3 {
		return ks[0]
	}
	best := ks[1]
	bestCurve := 0.0
	for i := 1; i < len(sse)-1; i++ {
		curve := sse[i-1] - 2*sse[i] + sse[i+1]
		if curve > bestCurve {
			bestCurve = curve
			best = ks[i]
		}
	}
	return best
}
