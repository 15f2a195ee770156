// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package krylov

import (
	"math"

	"github.com/coneopt/coneopt/vspace"
)

// TruncatedCG runs the Steihaug-Toint conjugate gradient iteration on
// A x = b, truncated for a trust region whose center may differ from the
// starting iterate.
//
// Every search direction is passed through the projector w before the
// operator product and the radius tests, which confines the iteration to the
// range of w. The radius is measured in the inner product induced by the
// shape operator trOp: the feasible set is ‖x - xCntr‖_TR <= delta. When a
// direction of nonpositive curvature appears, or a trial iterate would leave
// the region, the step is extended to the boundary along the current
// direction by the positive root of the boundary quadratic and the iteration
// stops with NegativeCurvature or TrustRegionViolated.
//
// The first iterate is the Cauchy point; it is stored into xcp and kept even
// when further iterations proceed. With fromStart the initial contents of x
// seed the iteration, otherwise x is zeroed first. Convergence is relative:
// ‖r‖ <= eps·‖b‖.
func TruncatedCG[V any](
	s vspace.Space[V],
	a vspace.Operator[V, V],
	b V,
	w, trOp, mInv vspace.Operator[V, V],
	eps float64,
	iterMax int,
	delta float64,
	xCntr V,
	fromStart bool,
	x, xcp V,
) (normR float64, iter int, stop Stop) {

	if !fromStart {
		s.Zero(x)
	}

	r := s.New(b)
	v := s.New(b)
	p := s.New(b)
	ap := s.New(b)
	u := s.New(b)
	work := s.New(b)

	// r = b - A x, u = x - xCntr
	a.Apply(x, ap)
	s.Copy(b, r)
	s.Axpy(-1, ap, r)
	s.Copy(x, u)
	s.Axpy(-1, xCntr, u)

	normB := vspace.Norm(s, b)
	normR = vspace.Norm(s, r)
	if normR <= eps*normB {
		s.Copy(x, xcp)
		return normR, 0, RelativeErrorSmall
	}
	mInv.Apply(r, work)
	w.Apply(work, v)
	s.Copy(v, p)
	innerRV := s.Inner(r, v)

	for iter = 1; iter <= iterMax; iter++ {
		// Project the direction before the product and the radius tests.
		w.Apply(p, work)
		s.Copy(work, p)

		a.Apply(p, ap)
		kappa := s.Inner(p, ap)

		a0, a1, a2 := trCoefs(s, trOp, u, p, work)

		if kappa <= 0 || math.IsNaN(kappa) {
			sigma := boundaryStep(a0, a1, a2, delta)
			s.Axpy(sigma, p, x)
			if iter == 1 {
				s.Copy(x, xcp)
			}
			s.Axpy(-sigma, ap, r)
			return vspace.Norm(s, r), iter, NegativeCurvature
		}

		alpha := innerRV / kappa
		if a0+a1*alpha+a2*alpha*alpha >= delta*delta {
			sigma := boundaryStep(a0, a1, a2, delta)
			s.Axpy(sigma, p, x)
			if iter == 1 {
				s.Copy(x, xcp)
			}
			s.Axpy(-sigma, ap, r)
			return vspace.Norm(s, r), iter, TrustRegionViolated
		}

		s.Axpy(alpha, p, x)
		s.Axpy(alpha, p, u)
		if iter == 1 {
			s.Copy(x, xcp)
		}
		s.Axpy(-alpha, ap, r)

		normR = vspace.Norm(s, r)
		if normR <= eps*normB {
			return normR, iter, RelativeErrorSmall
		}

		mInv.Apply(r, work)
		w.Apply(work, v)
		next := s.Inner(r, v)
		beta := next / innerRV
		innerRV = next

		// p = v + beta p
		s.Scale(beta, p)
		s.Axpy(1, v, p)
	}

	return vspace.Norm(s, r), iterMax, MaxItersExceeded
}
