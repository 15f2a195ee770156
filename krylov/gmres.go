// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"math"

	"github.com/coneopt/coneopt/vspace"
)

// GMRESManipulator is invoked after every Arnoldi step with the step count
// and the current preconditioned residual estimate. Returning true stops the
// iteration after the current solution update.
type GMRESManipulator func(iter int, resNorm float64) (halt bool)

// GMRES solves A x = b with restarted GMRES.
//
// The left preconditioner mlInv and right preconditioner mrInv are applied as
// operators, so the iteration runs on Ml A Mr with the back-solve minimizing
// ‖Ml(b - A x)‖. A restart frequency of zero disables restarting. The
// iteration stops when the preconditioned residual estimate drops to eps
// (absolute) or after iterMax Arnoldi steps. The solution is accumulated into
// x, which also provides the initial iterate.
//
// It returns the achieved residual norm and the number of Arnoldi steps.
func GMRES[V any](
	s vspace.Space[V],
	a vspace.Operator[V, V],
	b V,
	mlInv, mrInv vspace.Operator[V, V],
	manip GMRESManipulator,
	eps float64,
	iterMax, rstFreq int,
	x V,
) (resNorm float64, iters int) {

	restart := rstFreq
	if restart <= 0 || restart > iterMax {
		restart = iterMax
	}

	// Arnoldi basis, Hessenberg columns and Givens rotations for one cycle.
	vs := make([]V, restart+1)
	for i := range vs {
		vs[i] = s.New(b)
	}
	h := make([][]float64, restart)
	for i := range h {
		h[i] = make([]float64, restart+2)
	}
	g := make([]float64, restart+1)
	cs := make([]float64, restart)
	sn := make([]float64, restart)

	r := s.New(b)
	w := s.New(b)
	t := s.New(b)

	for {
		// Explicit residual r = Ml(b - A x). Recomputed on every restart.
		a.Apply(x, t)
		s.Copy(b, r)
		s.Axpy(-1, t, r)
		mlInv.Apply(r, w)
		s.Copy(w, r)

		beta := vspace.Norm(s, r)
		resNorm = beta
		if beta <= eps || iters >= iterMax {
			return resNorm, iters
		}

		s.Copy(r, vs[0])
		s.Scale(1/beta, vs[0])
		for i := range g {
			g[i] = 0
		}
		g[0] = beta

		inner := 0
		halt := false
		for i := 0; i < restart && iters < iterMax; i++ {
			iters++
			inner = i + 1

			// w = Ml A Mr v_i
			mrInv.Apply(vs[i], t)
			a.Apply(t, w)
			mlInv.Apply(w, t)
			s.Copy(t, w)

			// Modified Gram-Schmidt against the current basis.
			for j := 0; j <= i; j++ {
				h[i][j] = s.Inner(w, vs[j])
				s.Axpy(-h[i][j], vs[j], w)
			}
			wn := vspace.Norm(s, w)
			h[i][i+1] = wn
			if wn > 0 {
				s.Copy(w, vs[i+1])
				s.Scale(1/wn, vs[i+1])
			} else {
				s.Zero(vs[i+1])
			}

			// Maintain the QR factorization of the Hessenberg matrix.
			for j := 0; j < i; j++ {
				h[i][j], h[i][j+1] = rot(h[i][j], h[i][j+1], cs[j], sn[j])
			}
			cs[i], sn[i] = givens(h[i][i], h[i][i+1])
			h[i][i], h[i][i+1] = rot(h[i][i], h[i][i+1], cs[i], sn[i])
			g[i], g[i+1] = rot(g[i], g[i+1], cs[i], sn[i])

			resNorm = math.Abs(g[i+1])
			if manip != nil && manip(iters, resNorm) {
				halt = true
			}
			if resNorm <= eps || halt {
				break
			}
		}

		// Back-solve the triangular system and accumulate x += Mr (V y).
		y := make([]float64, inner)
		for i := inner - 1; i >= 0; i-- {
			y[i] = g[i]
			for j := i + 1; j < inner; j++ {
				y[i] -= h[j][i] * y[j]
			}
			y[i] /= h[i][i]
		}
		s.Zero(w)
		for i := 0; i < inner; i++ {
			s.Axpy(y[i], vs[i], w)
		}
		mrInv.Apply(w, t)
		s.Axpy(1, t, x)

		if resNorm <= eps || iters >= iterMax || halt {
			return resNorm, iters
		}
	}
}

// givens returns the rotation zeroing the second component of (a,b).
func givens(a, b float64) (c, s float64) {
	if b == 0 {
		return 1, 0
	}
	if math.Abs(b) > math.Abs(a) {
		tau := a / b
		s = 1 / math.Sqrt(1+tau*tau)
		return tau * s, s
	}
	tau := b / a
	c = 1 / math.Sqrt(1+tau*tau)
	return c, tau * c
}

func rot(a, b, c, s float64) (ra, rb float64) {
	return c*a + s*b, -s*a + c*b
}
