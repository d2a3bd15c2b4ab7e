package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// TraceSpace supplies what a streamline follows: positions and stream
// vectors at element locations, and the element across each face.
type TraceSpace interface {
	Position(e domain.Entity, xi [3]float64) ([3]float64, error)
	Vector(e domain.Entity, xi [3]float64) ([3]float64, error)
	Neighbor(e domain.Entity, face int) (domain.Entity, int, bool)
}

// TraceParams bounds a streamline. Step is the largest xi increment of a
// single step.
type TraceParams struct {
	Length   float64
	Reverse  bool
	Step     float64
	MaxSteps int
}

const (
	defaultTraceStep     = 0.1
	defaultTraceMaxSteps = 10000
	jacobianDelta        = 1e-4
)

// TracePoint is one point of a traced streamline.
type TracePoint struct {
	Element  domain.Entity
	Xi       [3]float64
	Position [3]float64
	Vector   [3]float64
	Time     float64
}

// Vertex converts the point to a geometry vertex without data.
func (p TracePoint) Vertex() Vertex {
	return Vertex{Position: p.Position, Site: siteOf(p.Element, p.Xi)}
}

// ErrSeedNotDefined is returned when the stream vector or position is not
// available at the seed.
var ErrSeedNotDefined = errors.New("streamline seed not defined")

// Trace integrates a streamline from xi in element start. Steps use the
// midpoint rule in xi space and move into neighbouring elements through
// shared faces. Tracing stops at the requested length, where the vector
// vanishes, at the mesh boundary, or after MaxSteps.
func Trace(space TraceSpace, start domain.Entity, xi [3]float64, p TraceParams) ([]TracePoint, error) {
	if p.Step <= 0 {
		p.Step = defaultTraceStep
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = defaultTraceMaxSteps
	}
	e := start
	pos, err := space.Position(e, xi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedNotDefined, err)
	}
	vec, err := space.Vector(e, xi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedNotDefined, err)
	}
	points := []TracePoint{{Element: e, Xi: xi, Position: pos, Vector: vec}}
	length, time := 0.0, 0.0
	d := e.Dimension

	direction := func(v [3]float64) [3]float64 {
		if p.Reverse {
			return scale(v, -1)
		}
		return v
	}

	limit := p.Length * (1 - 1e-12)
	for step := 0; step < p.MaxSteps && length < limit; step++ {
		cur := points[len(points)-1]
		v := direction(cur.Vector)
		if norm(v) < 1e-12 {
			break
		}
		dxi, ok := xiVelocity(space, e, xi, v)
		if !ok {
			break
		}
		m := maxAbs(dxi, d)
		if m == 0 {
			break
		}
		dt := p.Step / m
		mid := clampXi(addXi(xi, dxi, dt/2, d), d)
		if vm, err := space.Vector(e, mid); err == nil {
			if dm, ok := xiVelocity(space, e, mid, direction(vm)); ok {
				dxi = dm
			}
		}
		next := addXi(xi, dxi, dt, d)

		frac, exit := 1.0, -1
		for k := 0; k < d; k++ {
			delta := next[k] - xi[k]
			if next[k] < 0 && delta != 0 {
				if f := -xi[k] / delta; f < frac {
					frac, exit = f, 2*k
				}
			}
			if next[k] > 1 && delta != 0 {
				if f := (1 - xi[k]) / delta; f < frac {
					frac, exit = f, 2*k+1
				}
			}
		}
		next = clampXi(addXi(xi, dxi, dt*frac, d), d)
		if exit >= 0 {
			next[exit/2] = float64(exit % 2)
		}

		npos, err := space.Position(e, next)
		if err != nil {
			break
		}
		seg := norm(sub(npos, cur.Position))
		if remaining := p.Length - length; seg > remaining && seg > 0 {
			t := remaining / seg
			next = clampXi(addXi(xi, dxi, dt*frac*t, d), d)
			if npos, err = space.Position(e, next); err != nil {
				break
			}
			seg = remaining
			frac *= t
			exit = -1
		}
		length += seg
		time += dt * frac

		if seg > 0 {
			nvec, err := space.Vector(e, next)
			if err != nil {
				break
			}
			points = append(points, TracePoint{Element: e, Xi: next, Position: npos, Vector: nvec, Time: time})
		}
		xi = next

		if exit < 0 {
			continue
		}
		ne, _, ok := space.Neighbor(e, exit)
		if !ok {
			break
		}
		nxi, ok := locate(space, ne, npos)
		if !ok {
			break
		}
		e, xi = ne, nxi
	}
	return points, nil
}

func siteOf(e domain.Entity, xi [3]float64) primitive.Site {
	return primitive.Site{Dimension: e.Dimension, Element: e.ID, Xi: xi}
}

func addXi(xi, dxi [3]float64, t float64, d int) [3]float64 {
	for k := 0; k < d; k++ {
		xi[k] += t * dxi[k]
	}
	return xi
}

func clampXi(xi [3]float64, d int) [3]float64 {
	for k := 0; k < 3; k++ {
		if k >= d {
			xi[k] = 0
			continue
		}
		xi[k] = math.Max(0, math.Min(1, xi[k]))
	}
	return xi
}

func maxAbs(v [3]float64, d int) float64 {
	m := 0.0
	for k := 0; k < d; k++ {
		m = math.Max(m, math.Abs(v[k]))
	}
	return m
}

// jacobian returns the columns dx/dxi_k by central differences, one-sided
// at element boundaries.
func jacobian(space TraceSpace, e domain.Entity, xi [3]float64) ([3][3]float64, bool) {
	var cols [3][3]float64
	for k := 0; k < e.Dimension; k++ {
		lo, hi := xi, xi
		lo[k] = math.Max(0, xi[k]-jacobianDelta)
		hi[k] = math.Min(1, xi[k]+jacobianDelta)
		a, err := space.Position(e, lo)
		if err != nil {
			return cols, false
		}
		b, err := space.Position(e, hi)
		if err != nil {
			return cols, false
		}
		cols[k] = scale(sub(b, a), 1/(hi[k]-lo[k]))
	}
	return cols, true
}

// xiVelocity solves J dxi = v in the least squares sense.
func xiVelocity(space TraceSpace, e domain.Entity, xi, v [3]float64) ([3]float64, bool) {
	cols, ok := jacobian(space, e, xi)
	if !ok {
		return [3]float64{}, false
	}
	return leastSquares(cols, e.Dimension, v)
}

func leastSquares(cols [3][3]float64, d int, v [3]float64) ([3]float64, bool) {
	var out [3]float64
	if d == 0 {
		return out, false
	}
	a := make([][]float64, d)
	b := make([]float64, d)
	for i := 0; i < d; i++ {
		a[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			a[i][j] = dot(cols[i], cols[j])
		}
		b[i] = dot(cols[i], v)
	}
	x, ok := solve(a, b)
	if !ok {
		return out, false
	}
	copy(out[:], x)
	return out, true
}

// solve runs Gaussian elimination with partial pivoting on a small dense
// system.
func solve(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-300 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for c := r + 1; c < n; c++ {
			s -= a[r][c] * x[c]
		}
		x[r] = s / a[r][r]
	}
	return x, true
}

// locate finds the xi of a world position in element e by Newton
// iteration from the element centre.
func locate(space TraceSpace, e domain.Entity, target [3]float64) ([3]float64, bool) {
	xi := domain.Centre(e.Dimension)
	for iter := 0; iter < 20; iter++ {
		pos, err := space.Position(e, xi)
		if err != nil {
			return xi, false
		}
		r := sub(target, pos)
		if norm(r) < 1e-10 {
			return xi, true
		}
		cols, ok := jacobian(space, e, xi)
		if !ok {
			return xi, false
		}
		dxi, ok := leastSquares(cols, e.Dimension, r)
		if !ok {
			return xi, false
		}
		xi = clampXi(addXi(xi, dxi, 1, e.Dimension), e.Dimension)
	}
	return xi, true
}

// StreamDataType selects the per-vertex data of a streamline.
type StreamDataType int

const (
	StreamDataNone StreamDataType = iota
	StreamDataField
	StreamDataMagnitude
	StreamDataTravelTime
)

var streamDataNames = []string{"none", "field", "magnitude", "travel_time"}

func (t StreamDataType) String() string {
	if t >= 0 && int(t) < len(streamDataNames) {
		return streamDataNames[t]
	}
	return fmt.Sprintf("StreamDataType(%d)", int(t))
}

// ParseStreamDataType returns the data type with the given name.
func ParseStreamDataType(s string) (StreamDataType, error) {
	for i, name := range streamDataNames {
		if name == s {
			return StreamDataType(i), nil
		}
	}
	return StreamDataNone, fmt.Errorf("unknown streamline data type %q", s)
}
