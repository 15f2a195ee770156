// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"

	"github.com/coneopt/coneopt/krylov"
	"github.com/coneopt/coneopt/vspace"
)

// steepestDescent sets s <- -g.
func steepestDescent[XV any](sp vspace.Space[XV], st *State[XV]) {
	sp.Copy(st.Grad, st.Step)
	sp.Scale(-1, st.Step)
}

// conjugateGradientDir builds the nonlinear CG direction s <- -g + beta*s_old
// for the Fletcher-Reeves, Polak-Ribiere and Hestenes-Stiefel momentum
// choices. The first iteration falls back to steepest descent.
func conjugateGradientDir[XV any](sp vspace.Space[XV], st *State[XV]) {
	if st.Iter == 1 {
		steepestDescent(sp, st)
		return
	}

	var beta float64
	switch st.Dir {
	case FletcherReeves:
		beta = sp.Inner(st.Grad, st.Grad) / sp.Inner(st.GradOld, st.GradOld)
	case PolakRibiere:
		beta = (sp.Inner(st.Grad, st.Grad) - sp.Inner(st.Grad, st.GradOld)) /
			sp.Inner(st.GradOld, st.GradOld)
	case HestenesStiefel:
		beta = (sp.Inner(st.Grad, st.Grad) - sp.Inner(st.Grad, st.GradOld)) /
			(sp.Inner(st.Grad, st.StepOld) - sp.Inner(st.GradOld, st.StepOld))
	}

	sp.Copy(st.Grad, st.Step)
	sp.Scale(-1, st.Step)
	sp.Axpy(beta, st.StepOld, st.Step)
}

// bfgsDirection applies the inverse BFGS operator to the gradient,
// s <- -H_k g.
func bfgsDirection[XV any](sp vspace.Space[XV], st *State[XV]) {
	hinv := invBFGSOp[XV]{sp: sp, state: st}
	hinv.Apply(st.Grad, st.Step)
	sp.Scale(-1, st.Step)
}

// newtonCG solves H s = -g with plain truncated CG: the same iteration as
// the trust-region subproblem but with no radius. When the very first
// direction already has nonpositive curvature the steepest-descent
// direction is used instead.
func newtonCG[XV any](sp vspace.Space[XV], st *State[XV], minv, h vspace.Operator[XV, XV]) {
	g := st.Grad
	s := st.Step

	r := sp.New(g)
	v := sp.New(g)
	p := sp.New(g)
	hp := sp.New(g)

	sp.Zero(s)
	sp.Copy(g, r)
	minv.Apply(r, v)
	sp.Copy(v, p)
	sp.Scale(-1, p)
	innerRV := sp.Inner(r, v)
	normG := vspace.Norm(sp, g)

	iter := 1
	st.KrylovIterTotal++
	for ; iter <= st.KrylovIterMax; iter, st.KrylovIterTotal = iter+1, st.KrylovIterTotal+1 {
		h.Apply(p, hp)
		kappa := sp.Inner(p, hp)

		if kappa <= 0 || math.IsNaN(kappa) {
			if iter == 1 {
				sp.Copy(g, s)
				sp.Scale(-1, s)
			}
			st.KrylovStop = krylov.NegativeCurvature
			break
		}

		alpha := innerRV / kappa
		sp.Axpy(alpha, p, s)
		sp.Axpy(alpha, hp, r)

		if vspace.Norm(sp, r) <= st.EpsKrylov*normG {
			st.KrylovStop = krylov.RelativeErrorSmall
			break
		}

		minv.Apply(r, v)
		next := sp.Inner(r, v)
		beta := next / innerRV
		innerRV = next

		// p = -v + beta p
		sp.Scale(beta, p)
		sp.Axpy(-1, v, p)
	}

	if iter > st.KrylovIterMax {
		st.KrylovStop = krylov.MaxItersExceeded
		iter--
		st.KrylovIterTotal--
	}
	st.KrylovIter = iter
	st.KrylovRelErr = vspace.Norm(sp, r) / (1e-16 + normG)
}
