package optimizer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type pair struct {
	row, col int
}

// solve returns a minimum-cost matching of size min(rows, cols), sorted by row.
func solve(cost mat.Matrix) []pair {
	rows, cols := cost.Dims()
	if rows <= cols {
		return hungarian(cost)
	}

	// The solver needs rows <= cols, so match requirements to volunteers instead.
	flipped := hungarian(mat.DenseCopyOf(cost.T()))
	pairs := make([]pair, len(flipped))
	for i, p := range flipped {
		pairs[i] = pair{row: p.col, col: p.row}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].row < pairs[j].row })
	return pairs
}

// hungarian is the O(n^2 m) potentials formulation of Kuhn-Munkres for an
// n x m matrix with n <= m. Every row is matched to a distinct column.
func hungarian(cost mat.Matrix) []pair {
	n, m := cost.Dims()

	// Index 0 is a sentinel; rows and columns are 1-based below.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	match := make([]int, m+1) // column -> row
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		match[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		used := make([]bool, m+1)

		for {
			used[j0] = true
			i0 := match[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if match[j0] == 0 {
				break
			}
		}

		// Augment along the alternating path.
		for j0 != 0 {
			j1 := way[j0]
			match[j0] = match[j1]
			j0 = j1
		}
	}

	pairs := make([]pair, 0, n)
	for j := 1; j <= m; j++ {
		if match[j] != 0 {
			pairs = append(pairs, pair{row: match[j] - 1, col: j - 1})
		}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].row < pairs[b].row })
	return pairs
}
