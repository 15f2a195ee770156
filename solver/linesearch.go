// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"

	"github.com/coneopt/coneopt/vspace"
)

// goldenSection narrows the bracket [1e-16, 2*alpha] around a minimizer of
// phi(t) = f(x + t*s) with the golden ratio for a fixed number of probes,
// leaving the best probe in alpha and its objective value in obj_xps.
func goldenSection[XV any](sp vspace.Space[XV], fns *Functions[XV], st *State[XV]) {
	work := sp.New(st.X)

	// 1 over the golden ratio
	beta := 2. / (1. + math.Sqrt(5.))

	a := 1e-16
	b := 2 * st.Alpha

	lambda := a + (1-beta)*(b-a)
	mu := a + beta*(b-a)

	sp.Copy(st.X, work)
	sp.Axpy(mu, st.Step, work)
	objMu := fns.F.Eval(work)

	sp.Copy(st.X, work)
	sp.Axpy(lambda, st.Step, work)
	objLambda := fns.F.Eval(work)

	iter := 1
	for ; iter <= st.LSIterMax; iter, st.LSIterTotal = iter+1, st.LSIterTotal+1 {
		// A NaN on the right compares false here and brackets to the left,
		// which is what we want.
		if objLambda > objMu {
			a = lambda
			lambda = mu
			objLambda = objMu
			mu = a + beta*(b-a)

			sp.Copy(st.X, work)
			sp.Axpy(mu, st.Step, work)
			objMu = fns.F.Eval(work)
		} else {
			b = mu
			mu = lambda
			objMu = objLambda
			lambda = a + (1-beta)*(b-a)

			sp.Copy(st.X, work)
			sp.Axpy(lambda, st.Step, work)
			objLambda = fns.F.Eval(work)
		}
	}
	st.LSIter = iter - 1
	st.LSIterTotal--

	if objLambda < objMu {
		st.Alpha = lambda
		st.ObjXpS = objLambda
	} else {
		st.Alpha = mu
		st.ObjXpS = objMu
	}
}

// backTracking probes f at 2*alpha, alpha, alpha/2, ... and keeps the best.
func backTracking[XV any](sp vspace.Space[XV], fns *Functions[XV], st *State[XV]) {
	work := sp.New(st.X)

	alphaBest := 2 * st.Alpha
	sp.Copy(st.X, work)
	sp.Axpy(alphaBest, st.Step, work)
	objBest := fns.F.Eval(work)

	alpha := st.Alpha
	for i := 0; i < st.LSIterMax-1; i++ {
		sp.Copy(st.X, work)
		sp.Axpy(alpha, st.Step, work)
		obj := fns.F.Eval(work)

		if obj < objBest {
			objBest = obj
			alphaBest = alpha
		}
		alpha /= 2
	}

	st.Alpha = alphaBest
	st.ObjXpS = objBest
	st.LSIter = st.LSIterMax
	st.LSIterTotal += st.LSIterMax
}

// twoPoint computes the Barzilai-Borwein step length from the last iterate
// and gradient displacements.
func twoPoint[XV any](sp vspace.Space[XV], fns *Functions[XV], st *State[XV]) {
	dx := sp.New(st.X)
	dg := sp.New(st.X)
	work := sp.New(st.X)

	sp.Copy(st.X, dx)
	sp.Axpy(-1, st.XOld, dx)
	sp.Copy(st.Grad, dg)
	sp.Axpy(-1, st.GradOld, dg)

	switch st.Kind {
	case TwoPointA:
		st.Alpha = sp.Inner(dx, dg) / sp.Inner(dg, dg)
	case TwoPointB:
		st.Alpha = sp.Inner(dx, dx) / sp.Inner(dx, dg)
	}

	sp.Copy(st.X, work)
	sp.Axpy(st.Alpha, st.Step, work)
	st.ObjXpS = fns.F.Eval(work)

	st.LSIter = 1
	st.LSIterTotal++
}

// getStepLS finds a trial step using line-search globalization: generate
// the search direction, run the selected step rule, and rescale the
// direction by the accepted step length.
func getStepLS[XV any](
	msg *Messaging,
	fns *Functions[XV],
	st *State[XV],
	minv, h vspace.Operator[XV, XV],
) {
	sp := fns.X

	switch st.Dir {
	case SteepestDescent:
		steepestDescent(sp, st)
	case FletcherReeves, PolakRibiere, HestenesStiefel:
		conjugateGradientDir(sp, st)
	case BFGSDir:
		bfgsDirection(sp, st)
	case NewtonCG:
		newtonCG(sp, st, minv, h)
	}

	switch st.Kind {
	case GoldenSection:
		for {
			goldenSection(sp, fns, st)
			if st.ObjXpS <= st.ObjX {
				break
			}
			// No decrease: report and shrink the bracket.
			st.NormStep = st.Alpha * vspace.Norm(sp, st.Step)
			printState(msg, st, true)
			st.Alpha /= 2
		}
	case BackTracking:
		for {
			backTracking(sp, fns, st)
			if st.ObjXpS <= st.ObjX {
				break
			}
			// No decrease: restart below the smallest probed step.
			st.NormStep = st.Alpha * vspace.Norm(sp, st.Step)
			printState(msg, st, true)
			st.Alpha /= math.Pow(2, float64(st.LSIterMax+1))
		}
	case TwoPointA, TwoPointB:
		// The two-point rules need one completed iteration of history.
		if st.Iter > 1 {
			twoPoint(sp, fns, st)
		} else {
			goldenSection(sp, fns, st)
		}
	case Brents:
		failf(ErrNotImplemented, "Brent's line search is not currently implemented")
	}

	sp.Scale(st.Alpha, st.Step)
	st.NormStep = vspace.Norm(sp, st.Step)
}
