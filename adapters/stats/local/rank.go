package local

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// averageRanks assigns 1-based ranks to values, averaging over ties. Equal
// values share the mean of the rank positions they occupy, so a rank vector
// always sums to n(n+1)/2 regardless of ties.
func averageRanks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	for start := 0; start < n; {
		end := start + 1
		for end < n && values[order[end]] == values[order[start]] {
			end++
		}
		// positions start..end-1 hold a tie group; average their 1-based ranks
		avg := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			ranks[order[k]] = avg
		}
		start = end
	}
	return ranks
}

// rankColumns rank-transforms every column of m independently
func rankColumns(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		for i, v := range averageRanks(col) {
			out.Set(i, j, v)
		}
	}
	return out
}
