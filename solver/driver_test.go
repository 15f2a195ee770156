// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coneopt/coneopt/vspace"
)

// quadratic is f(x) = .5 <A x, x> - <b, x> with A symmetric positive
// definite, minimized at A⁻¹ b.
type quadratic struct {
	n int
	a []float64 // dense row-major
	b []float64
}

func (q *quadratic) mul(x, y []float64) {
	for i := 0; i < q.n; i++ {
		y[i] = 0
		for j := 0; j < q.n; j++ {
			y[i] += q.a[i*q.n+j] * x[j]
		}
	}
}

func (q *quadratic) Eval(x []float64) float64 {
	ax := make([]float64, q.n)
	q.mul(x, ax)
	v := 0.
	for i := range x {
		v += 0.5*ax[i]*x[i] - q.b[i]*x[i]
	}
	return v
}

func (q *quadratic) Grad(x, g []float64) {
	q.mul(x, g)
	for i := range g {
		g[i] -= q.b[i]
	}
}

func (q *quadratic) HessVec(x, dx, hdx []float64) {
	q.mul(dx, hdx)
}

// testQuadratic has minimizer (1, -1, 2).
func testQuadratic() (*quadratic, []float64) {
	q := &quadratic{
		n: 3,
		a: []float64{
			4, 1, 0,
			1, 3, 1,
			0, 1, 5,
		},
	}
	xStar := []float64{1, -1, 2}
	q.b = make([]float64, 3)
	q.mul(xStar, q.b)
	return q, xStar
}

func solveErr(xStar, x []float64) float64 {
	sp := vspace.Rn{}
	res := make([]float64, len(x))
	sp.Copy(xStar, res)
	sp.Axpy(-1, x, res)
	return vspace.Norm[[]float64](sp, res) / (1 + vspace.Norm[[]float64](sp, xStar))
}

func TestGetMinTrustRegionNewton(t *testing.T) {
	sp := vspace.Rn{}
	q, xStar := testQuadratic()

	st := NewState[[]float64](sp, []float64{0, 0, 0})
	st.HType = OpExternal
	st.EpsKrylov = 1e-12
	st.KrylovIterMax = 20
	st.IterMax = 30
	st.EpsGrad = 1e-10
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))

	assert.Equal(t, RelativeGradientSmall, st.OptStop)
	assert.Less(t, solveErr(xStar, st.X), 1e-8)
	assert.Less(t, st.Iter, 5)
}

func TestGetMinNewtonCGLineSearch(t *testing.T) {
	sp := vspace.Rn{}
	q, xStar := testQuadratic()

	st := NewState[[]float64](sp, []float64{3, 3, 3})
	st.Algorithm = LineSearch
	st.Dir = NewtonCG
	st.HType = OpExternal
	st.EpsKrylov = 1e-12
	st.KrylovIterMax = 20
	st.IterMax = 100
	st.EpsGrad = 1e-8
	st.EpsStep = 1e-12
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))

	assert.Less(t, solveErr(xStar, st.X), 1e-4)
}

func TestGetMinSteepestDescentBackTracking(t *testing.T) {
	sp := vspace.Rn{}
	q, xStar := testQuadratic()

	st := NewState[[]float64](sp, []float64{0, 0, 0})
	st.Algorithm = LineSearch
	st.Dir = SteepestDescent
	st.Kind = BackTracking
	st.LSIterMax = 10
	st.IterMax = 500
	st.EpsGrad = 1e-8
	st.EpsStep = 1e-10
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))

	assert.Less(t, solveErr(xStar, st.X), 1e-3)
}

func TestGetMinBFGSDirection(t *testing.T) {
	sp := vspace.Rn{}
	q, xStar := testQuadratic()

	st := NewState[[]float64](sp, []float64{2, 2, 2})
	st.Algorithm = LineSearch
	st.Dir = BFGSDir
	st.StoredHistory = 5
	st.LSIterMax = 10
	st.IterMax = 200
	st.EpsGrad = 1e-8
	st.EpsStep = 1e-12
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))

	assert.Less(t, solveErr(xStar, st.X), 1e-4)
}

func TestGetMinFletcherReeves(t *testing.T) {
	sp := vspace.Rn{}
	q, xStar := testQuadratic()

	st := NewState[[]float64](sp, []float64{-1, 0, 1})
	st.Algorithm = LineSearch
	st.Dir = FletcherReeves
	st.IterMax = 500
	st.EpsGrad = 1e-8
	st.EpsStep = 1e-10
	st.LSIterMax = 20
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))

	assert.Less(t, solveErr(xStar, st.X), 1e-3)
}

func TestGetMinTwoPointA(t *testing.T) {
	sp := vspace.Rn{}
	q, xStar := testQuadratic()

	st := NewState[[]float64](sp, []float64{1, 1, 1})
	st.Algorithm = LineSearch
	st.Dir = SteepestDescent
	st.Kind = TwoPointA
	st.IterMax = 500
	st.EpsGrad = 1e-8
	st.EpsStep = 1e-12
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))

	assert.Less(t, solveErr(xStar, st.X), 1e-3)
}

func TestGetMinStopsAtIterationCap(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{5, 5, 5})
	st.Algorithm = LineSearch
	st.Dir = SteepestDescent
	st.Kind = BackTracking
	st.IterMax = 2
	st.EpsGrad = 1e-16
	st.EpsStep = 1e-16
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, nil))
	assert.Equal(t, MaxItersExceeded, st.OptStop)
	assert.Equal(t, 2, st.Iter)
}

func TestGetMinManipulatorExternalStop(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{5, 5, 5})
	st.Algorithm = LineSearch
	st.Dir = SteepestDescent
	st.Kind = BackTracking
	st.IterMax = 100
	st.EpsGrad = 1e-16
	st.EpsStep = 1e-16
	st.Verbose = 0

	var locs []Location
	manip := func(loc Location, s *State[[]float64]) {
		locs = append(locs, loc)
		if loc == AfterStepBeforeGradient && s.Iter >= 3 {
			s.OptStop = ExternalStop
		}
	}

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, manip))
	assert.Equal(t, ExternalStop, st.OptStop)
	assert.Contains(t, locs, AfterStepBeforeGradient)
	assert.Contains(t, locs, EndOfOptimizationIteration)
}

func TestGetMinRejectsBadConfiguration(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{0, 0, 0})
	st.Eta1, st.Eta2 = 0.9, 0.1

	fns := &Functions[[]float64]{X: sp, F: q}
	require.ErrorIs(t, GetMin(nil, fns, st, nil), ErrConfiguration)
}

func TestGetMinRequiresExternalPreconditioner(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{0, 0, 0})
	st.MinvType = OpExternal

	fns := &Functions[[]float64]{X: sp, F: q}
	require.ErrorIs(t, GetMin(nil, fns, st, nil), ErrUnsupportedOperator)
}

func TestGetMinSurfacesInvalidHistory(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{3, 3, 3})
	st.Algorithm = LineSearch
	st.Dir = BFGSDir
	st.StoredHistory = 2
	st.Verbose = 0
	// Corrupt pair: <y,s> < 0 at apply time.
	st.OldS = [][]float64{{1, 0, 0}}
	st.OldY = [][]float64{{-1, 0, 0}}

	fns := &Functions[[]float64]{X: sp, F: q}
	require.ErrorIs(t, GetMin(nil, fns, st, nil), ErrInvalidHistory)
}

func TestGetMinRecoversOraclePanic(t *testing.T) {
	sp := vspace.Rn{}
	st := NewState[[]float64](sp, []float64{0})
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: panicky{}}
	err := GetMin(nil, fns, st, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfiguration)
}

type panicky struct{}

func (panicky) Eval(x []float64) float64     { panic("boom") }
func (panicky) Grad(x, g []float64)          { panic("boom") }
func (panicky) HessVec(x, dx, hdx []float64) { panic("boom") }

func TestGetMinBrentsNotImplemented(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{1, 1, 1})
	st.Algorithm = LineSearch
	st.Kind = Brents
	st.Verbose = 0

	fns := &Functions[[]float64]{X: sp, F: q}
	require.ErrorIs(t, GetMin(nil, fns, st, nil), ErrNotImplemented)
}

// The norms stay finite past the first iteration and the histories stay
// balanced, per the state invariants.
func TestGetMinMaintainsInvariants(t *testing.T) {
	sp := vspace.Rn{}
	q, _ := testQuadratic()

	st := NewState[[]float64](sp, []float64{4, -3, 1})
	st.Algorithm = LineSearch
	st.Dir = BFGSDir
	st.StoredHistory = 3
	st.IterMax = 50
	st.EpsGrad = 1e-10
	st.Verbose = 0

	checked := 0
	manip := func(loc Location, s *State[[]float64]) {
		if loc != EndOfOptimizationIteration {
			return
		}
		checked++
		assert.False(t, math.IsNaN(s.NormGrad))
		assert.False(t, math.IsNaN(s.NormStep))
		assert.GreaterOrEqual(t, s.NormGrad, 0.)
		assert.GreaterOrEqual(t, s.NormStep, 0.)
		assert.Equal(t, len(s.OldY), len(s.OldS))
		assert.LessOrEqual(t, len(s.OldS), s.StoredHistory)
	}

	fns := &Functions[[]float64]{X: sp, F: q}
	require.NoError(t, GetMin(nil, fns, st, manip))
	assert.Positive(t, checked)
}
