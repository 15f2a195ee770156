// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coneopt/coneopt/vspace"
)

func TestTruncatedMINRESBasicSolve(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5
	epsKrylov := 1e-12

	a := symOp(m)
	b := cosRHS(m)
	normB := vspace.Norm[[]float64](sp, b)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	normR, iter, _ := TruncatedMINRES[[]float64](sp, a, b, ident, ident,
		epsKrylov, 200, 100, cntr, x, xcp)

	require.Less(t, normR, epsKrylov*normB)
	require.Equal(t, m, iter)
	require.Less(t, relErr(sp, tcgWant, x), 1e-13)
	require.Greater(t, relErr(sp, xcp, x), 1e-4)
}

func TestTruncatedMINRESBoundaryStop(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5
	delta := 0.1

	a := symOp(m)
	b := cosRHS(m)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	_, _, stop := TruncatedMINRES[[]float64](sp, a, b, ident, ident,
		1e-12, 200, delta, cntr, x, xcp)

	require.Equal(t, TrustRegionViolated, stop)
	require.InDelta(t, delta, vspace.Norm[[]float64](sp, x), 1e-9)
}

// The singular 2x2 system with the trust-region center at (-3,-4) and
// radius 6.25: the first MINRES step heads for (1.5,2) and must be cut at
// half the distance, (0.75,1).
func TestTruncatedMINRESMovedCenter(t *testing.T) {
	sp := vspace.Rn{}
	const m = 2
	delta := 6.25

	a := newDenseOp(m)
	a.a[0], a.a[1], a.a[2], a.a[3] = 1, -1, -1, 1
	b := []float64{3, 4}

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := []float64{-3, -4}

	_, _, stop := TruncatedMINRES[[]float64](sp, a, b, ident, ident,
		1e-12, 200, delta, cntr, x, xcp)

	require.Equal(t, TrustRegionViolated, stop)
	require.InDelta(t, 1.25, vspace.Norm[[]float64](sp, x), 1e-9)
	require.Less(t, relErr(sp, []float64{0.75, 1}, x), 1e-14)
}

func TestTruncatedMINRESCauchyPoint(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5

	a := symOp(m)
	b := cosRHS(m)

	ident := vspace.Identity[[]float64]{X: sp}
	x := make([]float64, m)
	xcp := make([]float64, m)
	cntr := make([]float64, m)

	_, iter, _ := TruncatedMINRES[[]float64](sp, a, b, ident, ident,
		1e-12, 1, 100, cntr, x, xcp)

	require.Equal(t, 1, iter)
	require.Less(t, relErr(sp, xcp, x), 1e-14)
}

func TestTruncatedMINRESNullspaceSolve(t *testing.T) {
	sp := vspace.Rn{}
	const m = 5

	a := symOp(m)

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

	normR, iter, _ := TruncatedMINRES[[]float64](sp, a, b, w, ident,
		1e-12, 200, 100, cntr, x, xcp)

	require.Less(t, normR, 1e-12*normB)
	require.Equal(t, 2, iter)
	require.Less(t, relErr(sp, []float64{1, 1, 0, 0, 0}, x), 1e-13)
	require.Greater(t, relErr(sp, xcp, x), 1e-4)
}
