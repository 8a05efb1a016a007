package clustering

import "gonum.org/v1/gonum/mat"

// Noise is the label given to points that belong to no cluster.
const Noise = -1

// DBSCAN groups points from a precomputed distance matrix. A point's
// neighbourhood contains itself and every point within eps; points with at
// least minSamples neighbours are core points. Labels are assigned in input
// order and a border point joins the first cluster that reaches it.
func DBSCAN(dist mat.Matrix, eps float64, minSamples int) []int {
	n, _ := dist.Dims()

	neighborhoods := make([][]int, n)
	core := make([]bool, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || dist.At(i, j) <= eps {
				neighborhoods[i] = append(neighborhoods[i], j)
			}
		}
		core[i] = len(neighborhoods[i]) >= minSamples
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	next := 0
	var stack []int
	for i := 0; i < n; i++ {
		if labels[i] != Noise || !core[i] {
			continue
		}

		p := i
		for {
			if labels[p] == Noise {
				labels[p] = next
				if core[p] {
					for _, q := range neighborhoods[p] {
						if labels[q] == Noise {
							stack = append(stack, q)
						}
					}
				}
			}
			if len(stack) == 0 {
				break
			}
			p = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		next++
	}

	return labels
}
