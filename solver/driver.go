// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"

	"github.com/coneopt/coneopt/krylov"
	"github.com/coneopt/coneopt/vspace"
)

// Manipulator is a synchronous, non-escaping callback with mutable access to
// the state at well-defined points of the loop. Outer algorithms such as the
// interior-point layering hook in through it. A nil manipulator is a no-op.
type Manipulator[XV any] func(loc Location, st *State[XV])

// GetMin solves an unconstrained problem min f(x), mutating the state in
// place. It always returns with the stop reason in the state; the error is
// non-nil for configuration failures, invalid quasi-Newton history,
// missing external operators, or a panic escaping a user oracle.
func GetMin[XV any](
	msg *Messaging,
	fns *Functions[XV],
	st *State[XV],
	manip Manipulator[XV],
) (err error) {
	defer recoverFailure(&err)

	if err := fns.check(st); err != nil {
		return err
	}
	if err := st.Check(); err != nil {
		return err
	}

	sp := fns.X
	h := fns.hessian(st)
	minv := fns.preconditioner(st)

	// Evaluate the objective and gradient if that has not happened yet.
	if math.IsNaN(st.ObjX) {
		st.ObjX = fns.F.Eval(st.X)
		fns.F.Grad(st.X, st.Grad)
		st.NormGrad = vspace.Norm(sp, st.Grad)
		st.NormGradTyp = st.NormGrad
	}

	printStateHeader(msg, st)

	for {
		printState(msg, st, false)

		// Compute a trial step.
		switch st.Algorithm {
		case TrustRegion:
			getStepTR(msg, fns, st, minv, h)
		case LineSearch:
			getStepLS(msg, fns, st, minv, h)
		}
		printKrylov(msg, st)

		if math.IsNaN(st.NormStepTyp) {
			st.NormStepTyp = st.NormStep
		}

		// Save the old iterate, gradient and step, then move.
		sp.Copy(st.X, st.XOld)
		sp.Copy(st.Grad, st.GradOld)
		sp.Copy(st.Step, st.StepOld)
		sp.Axpy(1, st.Step, st.X)
		st.ObjX = st.ObjXpS

		if manip != nil {
			manip(AfterStepBeforeGradient, st)
		}

		fns.F.Grad(st.X, st.Grad)
		st.NormGrad = vspace.Norm(sp, st.Grad)

		updateQuasi(sp, st)

		st.Iter++
		st.OptStop = checkStop(st)

		if manip != nil {
			manip(EndOfOptimizationIteration, st)
		}

		if st.OptStop != NotConverged {
			break
		}
	}

	printState(msg, st, false)
	return nil
}

// usesKrylov reports whether the configuration runs an inner Krylov method.
func usesKrylov[XV any](st *State[XV]) bool {
	return st.Algorithm == TrustRegion || st.Dir == NewtonCG
}

func printStateHeader[XV any](msg *Messaging, st *State[XV]) {
	if msg == nil || st.Verbose < 1 {
		return
	}
	msg.print(st.Verbose, 1, "%4s %11s %11s %11s ", "Iter", "Obj Value", "norm(g)", "norm(s)")
	if usesKrylov(st) {
		msg.print(st.Verbose, 1, "%11s %6s %10s ", "Kry Error", "KryIt", "Kry Why")
	}
	if st.Algorithm == LineSearch {
		msg.print(st.Verbose, 1, "%6s ", "LS It")
	}
	msg.print(st.Verbose, 1, "\n")
}

// printState writes one diagnostic line for the current state. With noiter
// the iteration column carries a star, which marks rejected trust-region
// steps and restarted line searches.
func printState[XV any](msg *Messaging, st *State[XV], noiter bool) {
	if msg == nil || st.Verbose < 1 {
		return
	}
	if noiter {
		msg.print(st.Verbose, 1, "%4s ", "*")
	} else {
		msg.print(st.Verbose, 1, "%4d ", st.Iter)
	}
	msg.print(st.Verbose, 1, "%11.3e %11.3e ", st.ObjX, st.NormGrad)
	if st.Iter == 0 {
		msg.print(st.Verbose, 1, "%11s ", "")
	} else {
		msg.print(st.Verbose, 1, "%11.3e ", st.NormStep)
	}

	if usesKrylov(st) {
		var why string
		switch st.KrylovStop {
		case krylov.NegativeCurvature:
			why = "Neg Curv"
		case krylov.RelativeErrorSmall:
			why = "Rel Err"
		case krylov.MaxItersExceeded:
			why = "Max Iter"
		case krylov.TrustRegionViolated:
			why = "Trst Reg"
		}
		msg.print(st.Verbose, 1, "%11.3e %6d %10s ", st.KrylovRelErr, st.KrylovIter, why)
	}
	if st.Algorithm == LineSearch {
		msg.print(st.Verbose, 1, "%6d ", st.LSIter)
	}
	msg.print(st.Verbose, 1, "\n")
}

func printKrylov[XV any](msg *Messaging, st *State[XV]) {
	if msg == nil || st.Verbose < 2 || !usesKrylov(st) {
		return
	}
	msg.print(st.Verbose, 2, "  %4d %6d %11.3e\n",
		st.KrylovIter, st.KrylovIterTotal, st.KrylovRelErr)
}
