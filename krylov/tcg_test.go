// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coneopt/coneopt/vspace"
)

// symOp builds the shifted symmetric 5x5 operator shared by the truncated
// solver tests: cosine entries symmetrized with a +10 diagonal shift.
func symOp(m int) *denseOp {
	a := newDenseOp(m)
	for j := 1; j <= m; j++ {
		for i := 1; i <= m; i++ {
			bi := j + (i-1)*m
			bj := i + (j-1)*m
			if i > j {
				a.a[bi-1] = math.Cos(math.Pow(float64(bi), float64(m-1)))
				a.a[bj-1] = a.a[bi-1]
			} else if i == j {
				a.a[bi-1] = math.Cos(math.Pow(float64(bi), float64(m-1))) + 10
			}
		}
	}
	return a
}

func cosRHS(m int) []float64 {
	b := make([]float64, m)
	for i := 1; i <= m; i++ {
		b[i-1] = math.Cos(float64(i + 25))
	}
	return b
}

var tcgWant = []float64{
	0.062210523692158425,
	-0.027548098303754341,
	-0.11729291808469694,
	-0.080812473373141375,
	0.032637688404329734,
}

func TestTruncatedCGBasicSolve(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5
	epsKrylov := 1e-12
	delta := 100.

	a := symOp(m)
	b := cosRHS(m)
	normB := vspace.Norm[[]float64](sp, b)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	normR, iter, _ := TruncatedCG[[]float64](sp, a, b, ident, ident, ident,
		epsKrylov, 200, delta, cntr, false, x, xcp)

	require.Less(t, normR, epsKrylov*normB)
	require.Equal(t, m, iter)
	require.Less(t, relErr(sp, tcgWant, x), 1e-14)

	// The converged solution moved past the Cauchy point.
	require.Greater(t, relErr(sp, xcp, x), 1e-4)
}

func TestTruncatedCGBoundaryStop(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5
	delta := 0.1

	a := symOp(m)
	b := cosRHS(m)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	_, _, stop := TruncatedCG[[]float64](sp, a, b, ident, ident, ident,
		1e-12, 200, delta, cntr, false, x, xcp)

	require.Equal(t, TrustRegionViolated, stop)
	require.InDelta(t, delta, vspace.Norm[[]float64](sp, x), 1e-9)
}

// An inconsistent system with the trust-region center moved opposite the
// steepest-descent direction: with the center at (-3,-4) and radius 7.5 the
// first step must stop halfway, at (1.5,2).
func TestTruncatedCGMovedCenter(t *testing.T) {
	sp := vspace.Rn{}
	const m = 2
	delta := 7.5

	a := newDenseOp(m)
	a.a[0], a.a[1], a.a[2], a.a[3] = 1, -1, -1, 1
	b := []float64{3, 4}

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := []float64{-3, -4}

	_, _, stop := TruncatedCG[[]float64](sp, a, b, ident, ident, ident,
		1e-12, 200, delta, cntr, false, x, xcp)

	require.Equal(t, TrustRegionViolated, stop)
	require.InDelta(t, 2.5, vspace.Norm[[]float64](sp, x), 1e-9)
	require.Less(t, relErr(sp, []float64{1.5, 2}, x), 1e-14)
}

func TestTruncatedCGCauchyPoint(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5

	a := symOp(m)
	b := cosRHS(m)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	_, iter, _ := TruncatedCG[[]float64](sp, a, b, ident, ident, ident,
		1e-12, 1, 100, cntr, false, x, xcp)

	require.Equal(t, 1, iter)
	require.Less(t, relErr(sp, xcp, x), 1e-14)
}

func TestTruncatedCGNullspaceSolve(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5

	a := symOp(m)

	// Project onto the first two coordinates, with the right-hand side in
	// the range of A restricted to that subspace.
	w := newDenseOp(m)
	w.a[0] = 1
	w.a[1+m] = 1

	b := make([]float64, m)
	for i := 0; i < m; i++ {
		b[i] = a.a[i] + a.a[i+m]
	}
	normB := vspace.Norm[[]float64](sp, b)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	normR, iter, _ := TruncatedCG[[]float64](sp, a, b, w, ident, ident,
		1e-12, 200, 100, cntr, true, x, xcp)

	require.Less(t, normR, 1e-12*normB)
	require.Equal(t, 2, iter)
	require.Less(t, relErr(sp, []float64{1, 1, 0, 0, 0}, x), 1e-14)
	require.Greater(t, relErr(sp, xcp, x), 1e-4)
}

func TestTruncatedCGStartingSolution(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5
	epsKrylov := 1e-12

	a := symOp(m)
	b := cosRHS(m)
	normB := vspace.Norm[[]float64](sp, b)

	ident := vspace.Identity[[]float64]{X: sp}
	x := []float64{1, 1, 1, 1, 1}
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	normR, iter, _ := TruncatedCG[[]float64](sp, a, b, ident, ident, ident,
		epsKrylov, 200, 100, cntr, true, x, xcp)

	require.Less(t, normR, epsKrylov*normB)
	require.Equal(t, m, iter)
	require.Less(t, relErr(sp, tcgWant, x), 1e-14)
	require.Greater(t, relErr(sp, xcp, x), 1e-4)
}
