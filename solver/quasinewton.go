// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"github.com/coneopt/coneopt/vspace"
)

// The quasi-Newton operators hold borrowed views of the state's histories:
// they are built immediately before an apply or a subproblem solve and must
// not outlive the history they were built from. OldY and OldS are ordered
// newest first,
//
//	oldY[0] = g_k - g_{k-1},  oldS[0] = x_k - x_{k-1}.

// bfgsOp is the direct BFGS Hessian approximation. Note the usual two-loop
// formula produces the inverse; this computes the action of the true
// approximation B_k through the recursion
//
//	B_{i+1} = B_i - (B_i s_i s_iᵀ B_i)/⟨s_i,B_i s_i⟩ + y_i y_iᵀ/⟨y_i,s_i⟩
//
// maintaining the vectors B_i s_j in a workspace as i advances from the
// oldest pair to the newest.
type bfgsOp[XV any] struct {
	sp    vspace.Space[XV]
	state *State[XV]
}

func (op bfgsOp[XV]) Apply(p, result XV) {
	sp := op.sp
	oldY, oldS := op.state.OldY, op.state.OldS
	if len(oldY) != len(oldS) {
		failf(ErrInvalidHistory, "BFGS requires equally many gradient and step differences: %d != %d", len(oldY), len(oldS))
	}

	sp.Copy(p, result)
	k := len(oldY)
	if k == 0 {
		return
	}

	for i := range oldY {
		if sp.Inner(oldY[i], oldS[i]) <= 0 {
			failf(ErrInvalidHistory, "BFGS found an (s,y) pair with nonpositive inner product")
		}
	}

	// work[j] accumulates B_i s_j.
	work := make([]XV, k)
	for j := range work {
		work[j] = sp.New(p)
		sp.Copy(oldS[j], work[j])
	}

	for i := k - 1; i >= 0; i-- {
		si, yi, bisi := oldS[i], oldY[i], work[i]

		innerBisiSi := sp.Inner(bisi, si)
		innerYiSi := sp.Inner(yi, si)

		// result <- B_{i+1} p
		sp.Axpy(-sp.Inner(si, result)/innerBisiSi, bisi, result)
		sp.Axpy(sp.Inner(yi, p)/innerYiSi, yi, result)

		// Promote the remaining workspace columns to B_{i+1} s_j.
		for j := 0; j < i; j++ {
			bisj := work[j]
			sp.Axpy(-sp.Inner(si, bisj)/innerBisiSi, bisi, bisj)
			sp.Axpy(sp.Inner(yi, oldS[j])/innerYiSi, yi, bisj)
		}
	}
}

// sr1Op is the direct SR1 Hessian approximation,
//
//	B_{i+1} = B_i + (y_i - B_i s_i)(y_i - B_i s_i)ᵀ/⟨y_i - B_i s_i, s_i⟩
//
// with the same workspace structure as BFGS and no positivity requirement.
type sr1Op[XV any] struct {
	sp    vspace.Space[XV]
	state *State[XV]

	// swap applies the recursion with the roles of Y and S exchanged,
	// which yields the inverse SR1 operator.
	swap bool
}

func (op sr1Op[XV]) Apply(p, result XV) {
	sp := op.sp
	oldY, oldS := op.state.OldY, op.state.OldS
	if op.swap {
		oldY, oldS = oldS, oldY
	}
	if len(oldY) != len(oldS) {
		failf(ErrInvalidHistory, "SR1 requires equally many gradient and step differences: %d != %d", len(oldY), len(oldS))
	}

	sp.Copy(p, result)
	k := len(oldY)
	if k == 0 {
		return
	}

	work := make([]XV, k)
	for j := range work {
		work[j] = sp.New(p)
		sp.Copy(oldS[j], work[j])
	}

	for i := k - 1; i >= 0; i-- {
		si, yi, bisi := oldS[i], oldY[i], work[i]

		denom := sp.Inner(yi, si) - sp.Inner(bisi, si)

		alpha := (sp.Inner(yi, p) - sp.Inner(bisi, p)) / denom
		sp.Axpy(alpha, yi, result)
		sp.Axpy(-alpha, bisi, result)

		for j := 0; j < i; j++ {
			bisj := work[j]
			beta := (sp.Inner(yi, oldS[j]) - sp.Inner(bisi, oldS[j])) / denom
			sp.Axpy(beta, yi, bisj)
			sp.Axpy(-beta, bisi, bisj)
		}
	}
}

// invBFGSOp applies the inverse BFGS operator H_k with the standard
// two-loop recursion, taking H_0 = I.
type invBFGSOp[XV any] struct {
	sp    vspace.Space[XV]
	state *State[XV]
}

func (op invBFGSOp[XV]) Apply(p, result XV) {
	sp := op.sp
	oldY, oldS := op.state.OldY, op.state.OldS
	if len(oldY) != len(oldS) {
		failf(ErrInvalidHistory, "inverse BFGS requires equally many gradient and step differences: %d != %d", len(oldY), len(oldS))
	}
	for i := range oldY {
		if sp.Inner(oldY[i], oldS[i]) <= 0 {
			failf(ErrInvalidHistory, "inverse BFGS found an (s,y) pair with nonpositive inner product")
		}
	}

	k := len(oldY)
	alpha := make([]float64, k)
	rho := make([]float64, k)

	sp.Copy(p, result)

	for i := 0; i < k; i++ {
		rho[i] = 1 / sp.Inner(oldY[i], oldS[i])
		alpha[i] = rho[i] * sp.Inner(oldS[i], result)
		sp.Axpy(-alpha[i], oldY[i], result)
	}
	for i := k - 1; i >= 0; i-- {
		beta := rho[i] * sp.Inner(oldY[i], result)
		sp.Axpy(alpha[i]-beta, oldS[i], result)
	}
}

// scaledIdentityOp returns (‖g‖/delta_max) p, a crude curvature scale that
// keeps the Cauchy step inside the maximum trust region.
type scaledIdentityOp[XV any] struct {
	sp    vspace.Space[XV]
	state *State[XV]
}

func (op scaledIdentityOp[XV]) Apply(p, result XV) {
	op.sp.Copy(p, result)
	op.sp.Scale(op.state.NormGrad/op.state.DeltaMax, result)
}

// updateQuasi refreshes the quasi-Newton history after a successful step,
// discarding pairs that would break the BFGS curvature condition when any
// BFGS variant is in play.
func updateQuasi[XV any](sp vspace.Space[XV], st *State[XV]) {
	if st.StoredHistory == 0 {
		return
	}

	s := sp.New(st.X)
	sp.Copy(st.X, s)
	sp.Axpy(-1, st.XOld, s)

	y := sp.New(st.X)
	sp.Copy(st.Grad, y)
	sp.Axpy(-1, st.GradOld, y)

	usesBFGS := st.MinvType == OpInvBFGS || st.HType == OpBFGS || st.Dir == BFGSDir
	if usesBFGS && sp.Inner(y, s) <= 0 {
		return
	}

	st.OldS = append([]XV{s}, st.OldS...)
	st.OldY = append([]XV{y}, st.OldY...)
	if len(st.OldS) > st.StoredHistory {
		st.OldS = st.OldS[:st.StoredHistory]
		st.OldY = st.OldY[:st.StoredHistory]
	}
}
