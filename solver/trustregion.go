// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"

	"github.com/coneopt/coneopt/krylov"
	"github.com/coneopt/coneopt/vspace"
)

// checkStep decides whether to accept the trial step s and adjusts the
// trust-region radius.
func checkStep[XV any](
	fns *Functions[XV],
	st *State[XV],
	h vspace.Operator[XV, XV],
) bool {
	sp := fns.X

	xps := sp.New(st.X)
	hs := sp.New(st.X)

	// x + s and the objective there
	sp.Copy(st.Step, xps)
	sp.Axpy(1, st.X, xps)
	st.ObjXpS = fns.F.Eval(xps)

	// Quadratic model m(s) = f(x) + <g,s> + .5 <H s,s>
	h.Apply(st.Step, hs)
	model := st.ObjX + sp.Inner(st.Grad, st.Step) + 0.5*sp.Inner(hs, st.Step)

	// The subproblem solve can fail to decrease the model, for instance
	// when a hand-coded Hessian-vector product is not symmetric and the
	// truncated solver exits with an undefined result. The reduction ratio
	// would then be meaningless, so shrink and reject outright.
	if model > st.ObjX {
		st.Delta = st.NormStep / 2
		st.Rho = math.NaN()
		return false
	}

	st.Rho = (st.ObjX - st.ObjXpS) / (st.ObjX - model)

	switch {
	case st.Rho >= st.Eta2:
		// Only expand when the step pressed against the boundary.
		if math.Abs(st.NormStep-st.Delta) < 1e-4*st.Delta {
			st.Delta = math.Min(2*st.Delta, st.DeltaMax)
		}
		return true
	case st.Rho >= st.Eta1:
		return true
	default:
		st.Delta = st.NormStep / 2
		return false
	}
}

// getStepTR finds the trust-region trial step: solve the truncated-CG
// subproblem and retest until the step is accepted, shrinking the radius on
// every rejection and dropping the quasi-Newton history when the rejections
// pile past the reset threshold.
func getStepTR[XV any](
	msg *Messaging,
	fns *Functions[XV],
	st *State[XV],
	minv, h vspace.Operator[XV, XV],
) {
	sp := fns.X

	negGrad := sp.New(st.X)
	center := sp.New(st.X)
	xcp := sp.New(st.X)
	sp.Zero(center)

	ident := vspace.Identity[XV]{X: sp}

	st.RejectedTR = 0
	for {
		if st.RejectedTR > st.HistoryReset {
			st.OldY = nil
			st.OldS = nil
		}

		if st.RejectedTR > 0 {
			printState(msg, st, true)
		}

		// The subproblem minimizes the model of f(x+s) over ‖s‖ <= delta,
		// which is the trust region centered at the current iterate.
		sp.Copy(st.Grad, negGrad)
		sp.Scale(-1, negGrad)
		normR, iter, stop := krylov.TruncatedCG(
			sp, h, negGrad, ident, ident, minv,
			st.EpsKrylov, st.KrylovIterMax, st.Delta, center, false,
			st.Step, xcp,
		)
		st.KrylovIter = iter
		st.KrylovIterTotal += iter
		st.KrylovStop = stop
		st.KrylovRelErr = normR / (1e-16 + st.NormGrad)

		st.NormStep = vspace.Norm(sp, st.Step)
		st.RejectedTR++

		if checkStep(fns, st, h) {
			break
		}
	}
	st.RejectedTR--
}
