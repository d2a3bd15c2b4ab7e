package domain

// Weights returns the linear Lagrange basis weights of each local node of
// shape s at xi. Coordinates beyond the shape's dimension are ignored.
func Weights(s Shape, xi [3]float64) []float64 {
	d := s.Dimension()
	w := make([]float64, s.NodeCount())
	for i := range w {
		v := 1.0
		for k := 0; k < d; k++ {
			if i&(1<<k) != 0 {
				v *= xi[k]
			} else {
				v *= 1 - xi[k]
			}
		}
		w[i] = v
	}
	return w
}

// Centre returns the xi of the centre of a shape of dimension d.
func Centre(d int) [3]float64 {
	var xi [3]float64
	for k := 0; k < d && k < 3; k++ {
		xi[k] = 0.5
	}
	return xi
}

func clampDivisions(d int, n [3]int) [3]int {
	var out [3]int
	for k := 0; k < 3; k++ {
		switch {
		case k >= d:
			out[k] = 0
		case n[k] < 1:
			out[k] = 1
		default:
			out[k] = n[k]
		}
	}
	return out
}

// Lattice returns the (n1+1)*(n2+1)*(n3+1) corner points of a regular
// subdivision of a shape of dimension d, xi1 varying fastest.
func Lattice(d int, n [3]int) [][3]float64 {
	n = clampDivisions(d, n)
	var out [][3]float64
	for k := 0; k <= n[2]; k++ {
		for j := 0; j <= n[1]; j++ {
			for i := 0; i <= n[0]; i++ {
				out = append(out, [3]float64{
					frac(i, n[0]), frac(j, n[1]), frac(k, n[2]),
				})
			}
		}
	}
	return out
}

// CellCentres returns the centres of the n1*n2*n3 cells of a regular
// subdivision of a shape of dimension d.
func CellCentres(d int, n [3]int) [][3]float64 {
	n = clampDivisions(d, n)
	var out [][3]float64
	cells := [3]int{max(n[0], 1), max(n[1], 1), max(n[2], 1)}
	for k := 0; k < cells[2]; k++ {
		for j := 0; j < cells[1]; j++ {
			for i := 0; i < cells[0]; i++ {
				var xi [3]float64
				idx := [3]int{i, j, k}
				for a := 0; a < d; a++ {
					xi[a] = (float64(idx[a]) + 0.5) / float64(n[a])
				}
				out = append(out, xi)
			}
		}
	}
	return out
}

func frac(i, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(i) / float64(n)
}
