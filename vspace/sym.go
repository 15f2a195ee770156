// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vspace

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SymCone is the cone of symmetric positive semidefinite N x N matrices
// under the Jordan product x ∘ y = (xy+yx)/2. Vectors are dense row-major
// []float64 of length N*N holding the full symmetric matrix, so the ambient
// space is simply Rn with the Frobenius inner product.
type SymCone struct {
	N int
}

// Space returns the ambient space of the cone.
func (SymCone) Space() Space[[]float64] { return Rn{} }

func (c SymCone) Prod(x, y, z []float64) {
	n := c.N
	xm := mat.NewDense(n, n, x)
	ym := mat.NewDense(n, n, y)
	var xy, yx mat.Dense
	xy.Mul(xm, ym)
	yx.Mul(ym, xm)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z[i*n+j] = 0.5 * (xy.At(i, j) + yx.At(i, j))
		}
	}
}

func (c SymCone) ID(x []float64) {
	n := c.N
	for i := range x {
		x[i] = 0
	}
	for i := 0; i < n; i++ {
		x[i*n+i] = 1
	}
}

// Linv solves the Sylvester equation (xz+zx)/2 = y in the eigenbasis of x:
// with x = QΛQᵀ and ỹ = Qᵀ y Q, the solution is z̃ij = 2 ỹij/(λi+λj).
func (c SymCone) Linv(x, y, z []float64) {
	n := c.N
	q, lam := c.eigen(x)
	var yt mat.Dense
	yt.Mul(q.T(), mat.NewDense(n, n, y))
	yt.Mul(&yt, q)
	zt := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			zt.Set(i, j, 2*yt.At(i, j)/(lam[i]+lam[j]))
		}
	}
	var zm mat.Dense
	zm.Mul(q, zt)
	zm.Mul(&zm, q.T())
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z[i*n+j] = zm.At(i, j)
		}
	}
}

// Srch returns the largest alpha >= 0 with x + alpha*dx ⪰ 0, computed from
// the smallest eigenvalue of x^{-1/2} dx x^{-1/2}, or -1 when unbounded.
// A base point on the boundary, or pushed there by roundoff, admits no step.
func (c SymCone) Srch(x, dx []float64) float64 {
	n := c.N
	q, lam := c.eigen(x)

	// Form x^{-1/2} = Q Λ^{-1/2} Qᵀ.
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		if lam[i] <= 0 {
			return 0
		}
		d.Set(i, i, 1/math.Sqrt(lam[i]))
	}
	var xirt mat.Dense
	xirt.Mul(q, d)
	xirt.Mul(&xirt, q.T())

	var cmat mat.Dense
	cmat.Mul(&xirt, mat.NewDense(n, n, dx))
	cmat.Mul(&cmat, &xirt)

	// Symmetrize to guard against roundoff before the eigensolve.
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(cmat.At(i, j)+cmat.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		panic("vspace: eigendecomposition failed in Srch")
	}
	min := eig.Values(nil)[0]
	if min >= 0 {
		return -1
	}
	return -1 / min
}

func (c SymCone) eigen(x []float64) (*mat.Dense, []float64) {
	n := c.N
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(x[i*n+j]+x[j*n+i]))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		panic("vspace: eigendecomposition failed")
	}
	var q mat.Dense
	eig.VectorsTo(&q)
	return &q, eig.Values(nil)
}
