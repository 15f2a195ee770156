// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"math"

	"github.com/coneopt/coneopt/vspace"
)

// TruncatedMINRES runs the Lanczos-based MINRES recurrence on A x = b for a
// symmetric, possibly indefinite operator, truncated with the same
// null-space projection and off-center trust-region rules as TruncatedCG.
//
// The Lanczos vectors are passed through the projector w, the radius is
// measured through the shape operator trOp around xCntr, and the first
// iterate is the Cauchy point stored into xcp. A step whose update direction
// has nonpositive curvature, or that would leave the trust region, is cut at
// the boundary and the iteration stops with the matching reason. Convergence
// is relative: ‖r‖ <= eps·‖b‖. The initial contents of x seed the iteration.
func TruncatedMINRES[V any](
	s vspace.Space[V],
	a vspace.Operator[V, V],
	b V,
	w, trOp vspace.Operator[V, V],
	eps float64,
	iterMax int,
	delta float64,
	xCntr V,
	x, xcp V,
) (normR float64, iter int, stop Stop) {

	r := s.New(b)
	work := s.New(b)
	u := s.New(b)

	// Lanczos vectors and the two stored update directions with their
	// operator images. Keeping A w_k avoids an extra product in the
	// curvature test: A w_new follows from the same three-term recurrence.
	v := s.New(b)
	vPrev := s.New(b)
	vNext := s.New(b)
	av := s.New(b)
	wCur := s.New(b)
	wOld := s.New(b)
	awCur := s.New(b)
	awOld := s.New(b)
	wNew := s.New(b)
	awNew := s.New(b)
	step := s.New(b)

	// r = W(b - A x), u = x - xCntr
	a.Apply(x, work)
	s.Copy(b, r)
	s.Axpy(-1, work, r)
	w.Apply(r, work)
	s.Copy(work, r)
	s.Copy(x, u)
	s.Axpy(-1, xCntr, u)

	normB := vspace.Norm(s, b)
	beta := vspace.Norm(s, r)
	if beta <= eps*normB {
		s.Copy(x, xcp)
		return beta, 0, RelativeErrorSmall
	}
	s.Copy(r, v)
	s.Scale(1/beta, v)
	s.Zero(vPrev)
	s.Zero(wCur)
	s.Zero(wOld)
	s.Zero(awCur)
	s.Zero(awOld)

	phibar := beta
	cs, sn := -1.0, 0.0
	dbar, epsln := 0.0, 0.0

	for iter = 1; iter <= iterMax; iter++ {
		a.Apply(v, av)
		alpha := s.Inner(v, av)

		// Next Lanczos vector, projected.
		s.Copy(av, vNext)
		s.Axpy(-alpha, v, vNext)
		s.Axpy(-beta, vPrev, vNext)
		w.Apply(vNext, work)
		s.Copy(work, vNext)
		betaNext := vspace.Norm(s, vNext)
		if betaNext > 0 {
			s.Scale(1/betaNext, vNext)
		}

		// Apply the previous rotation and compute the next one.
		delta1 := cs*dbar + sn*alpha
		gbar := sn*dbar - cs*alpha
		epsNext := sn * betaNext
		dbarNext := -cs * betaNext
		gamma := math.Hypot(gbar, betaNext)
		if gamma == 0 {
			gamma = math.SmallestNonzeroFloat64
		}
		csNew := gbar / gamma
		snNew := betaNext / gamma
		phi := csNew * phibar

		// w_new = (v - delta1*w_k - epsln*w_{k-1}) / gamma, and the same
		// recurrence for its operator image.
		s.Copy(v, wNew)
		s.Axpy(-delta1, wCur, wNew)
		s.Axpy(-epsln, wOld, wNew)
		s.Scale(1/gamma, wNew)
		s.Copy(av, awNew)
		s.Axpy(-delta1, awCur, awNew)
		s.Axpy(-epsln, awOld, awNew)
		s.Scale(1/gamma, awNew)

		kappa := s.Inner(wNew, awNew)
		if kappa <= 0 || math.IsNaN(kappa) {
			// Leave along the residual-reducing orientation of the
			// direction.
			if phi < 0 {
				s.Scale(-1, wNew)
			}
			cutStep(s, wNew, u, trOp, work, delta, x)
			if iter == 1 {
				s.Copy(x, xcp)
			}
			return explicitResidual(s, a, b, x, r, work), iter, NegativeCurvature
		}

		// Candidate update x + phi*w_new against the trust region.
		s.Copy(wNew, step)
		s.Scale(phi, step)
		a0, a1, a2 := trCoefs(s, trOp, u, step, work)
		if a0+a1+a2 >= delta*delta {
			sigma := boundaryStep(a0, a1, a2, delta)
			s.Axpy(sigma, step, x)
			if iter == 1 {
				s.Copy(x, xcp)
			}
			return explicitResidual(s, a, b, x, r, work), iter, TrustRegionViolated
		}

		s.Axpy(1, step, x)
		s.Axpy(1, step, u)
		if iter == 1 {
			s.Copy(x, xcp)
		}

		phibar = snNew * phibar
		cs, sn = csNew, snNew
		dbar, epsln = dbarNext, epsNext
		s.Copy(wCur, wOld)
		s.Copy(wNew, wCur)
		s.Copy(awCur, awOld)
		s.Copy(awNew, awCur)
		s.Copy(v, vPrev)
		s.Copy(vNext, v)
		beta = betaNext

		normR = math.Abs(phibar)
		if normR <= eps*normB {
			return normR, iter, RelativeErrorSmall
		}
	}

	return math.Abs(phibar), iterMax, MaxItersExceeded
}

// cutStep extends x to the trust-region boundary along d.
func cutStep[V any](s vspace.Space[V], d, u V, trOp vspace.Operator[V, V], work V, delta float64, x V) {
	a0, a1, a2 := trCoefs(s, trOp, u, d, work)
	sigma := boundaryStep(a0, a1, a2, delta)
	s.Axpy(sigma, d, x)
}

func explicitResidual[V any](s vspace.Space[V], a vspace.Operator[V, V], b, x, r, work V) float64 {
	a.Apply(x, work)
	s.Copy(b, r)
	s.Axpy(-1, work, r)
	return vspace.Norm(s, r)
}
