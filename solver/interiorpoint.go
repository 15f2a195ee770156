// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"

	"github.com/coneopt/coneopt/vspace"
)

// IneqFunctions bundles an inequality constrained problem
// min f(x) subject to h(x) ⪰_K 0: the spaces, the cone algebra of the
// constraint space, and the two oracles.
type IneqFunctions[XV, ZV any] struct {
	X vspace.Space[XV]
	Z vspace.Space[ZV]
	K vspace.Cone[ZV]

	F ScalarFunc[XV]
	H VectorFunc[XV, ZV]

	// Hess and Minv play the same roles as in Functions. An External
	// Hessian choice uses the Lagrangian Hessian-vector product built
	// here, augmented with the interior-point curvature term, unless Hess
	// is set explicitly.
	Hess vspace.Operator[XV, XV]
	Minv vspace.Operator[XV, XV]
}

// ipmMerit is the scalar function the unconstrained core runs on: the
// Lagrangian f(x) - <z,h(x)> for the current multiplier, whose Hessian
// carries the primal-dual term h'(x)* L(h(x))⁻¹ (z ∘ h'(x)dx) left behind
// by eliminating the dual step.
type ipmMerit[XV, ZV any] struct {
	fns *IneqFunctions[XV, ZV]
	st  *IneqState[XV, ZV]
}

func (m *ipmMerit[XV, ZV]) Eval(x XV) float64 {
	hx := m.fns.Z.New(m.st.Z)
	m.fns.H.Eval(x, hx)
	return m.fns.F.Eval(x) - m.fns.Z.Inner(m.st.Z, hx)
}

func (m *ipmMerit[XV, ZV]) Grad(x XV, g XV) {
	m.fns.F.Grad(x, g)
	w := m.fns.X.New(x)
	m.fns.H.Ps(x, m.st.Z, w)
	m.fns.X.Axpy(-1, w, g)
}

func (m *ipmMerit[XV, ZV]) HessVec(x, dx, hdx XV) {
	fns, st := m.fns, m.st
	sx, sz := fns.X, fns.Z

	fns.F.HessVec(x, dx, hdx)

	// -(h''(x)dx)* z
	xw := sx.New(x)
	fns.H.Pps(x, dx, st.Z, xw)
	sx.Axpy(-1, xw, hdx)

	// + h'(x)* L(h(x))⁻¹ (z ∘ h'(x)dx)
	hp := sz.New(st.Z)
	zhp := sz.New(st.Z)
	w := sz.New(st.Z)
	fns.H.P(x, dx, hp)
	fns.K.Prod(st.Z, hp, zhp)
	fns.K.Linv(st.HX, zhp, w)
	fns.H.Ps(x, w, xw)
	sx.Axpy(1, xw, hdx)
}

// GetMinIneq solves an inequality constrained problem with the primal-dual
// interior-point layering over the unconstrained core: the core sees the
// Lagrangian merit, while a manipulator keeps the iterates strictly
// feasible with a fraction-to-boundary cut, recenters the multiplier onto
// the mu-center z = mu L(h(x))⁻¹ e, and drives mu down by the centrality
// factor sigma.
func GetMinIneq[XV, ZV any](
	msg *Messaging,
	fns *IneqFunctions[XV, ZV],
	st *IneqState[XV, ZV],
	manip Manipulator[XV],
) (err error) {
	defer recoverFailure(&err)

	if fns.Z == nil || fns.K == nil {
		return configErrorf("inequality constrained problems require the constraint space and its cone")
	}
	if fns.H == nil {
		return configErrorf("inequality constrained problems require the constraint map")
	}
	if fns.X == nil || fns.F == nil {
		return configErrorf("every optimization problem requires a vector space and an objective")
	}
	if err := st.Check(); err != nil {
		return err
	}

	// Cache h(x) and center mu on the initial complementarity.
	fns.H.Eval(st.X, st.HX)
	e := fns.Z.New(st.Z)
	fns.K.ID(e)
	st.MuEst = fns.Z.Inner(st.HX, st.Z) / fns.Z.Inner(e, e)
	st.Mu = st.MuEst

	inner := &Functions[XV]{
		X:    fns.X,
		F:    &ipmMerit[XV, ZV]{fns: fns, st: st},
		Hess: fns.Hess,
		Minv: fns.Minv,
	}

	ipManip := func(loc Location, core *State[XV]) {
		if loc == AfterStepBeforeGradient {
			ipmRecenter(fns, st, e)
		}
		if manip != nil {
			manip(loc, core)
		}
	}

	return GetMin(msg, inner, &st.State, ipManip)
}

// ipmRecenter runs after the core has moved to x = x_old + s: it cuts the
// step back to the gamma fraction of the largest cone-feasible step,
// refreshes the cached h(x), reduces mu from the measured complementarity,
// and recenters the multiplier.
func ipmRecenter[XV, ZV any](fns *IneqFunctions[XV, ZV], st *IneqState[XV, ZV], e ZV) {
	sx, sz, cone := fns.X, fns.Z, fns.K

	htmp := sz.New(st.Z)
	dh := sz.New(st.Z)

	// The feasibility test walks the segment from the cached interior
	// h(x_old) toward the candidate h(x): a boundary crossing inside the
	// segment means the candidate left the cone.
	for tries := 0; ; tries++ {
		fns.H.Eval(st.X, htmp)
		sz.Copy(htmp, dh)
		sz.Axpy(-1, st.HX, dh)
		alpha := cone.Srch(st.HX, dh)
		if alpha < 0 || st.Gamma*alpha >= 1 || tries >= 100 {
			break
		}
		t := st.Gamma * alpha
		if tries >= 50 || t <= 0 {
			t = 0.5
		}
		sx.Scale(t, st.Step)
		sx.Copy(st.XOld, st.X)
		sx.Axpy(1, st.Step, st.X)
		st.NormStep = vspace.Norm(sx, st.Step)
	}
	sz.Copy(htmp, st.HX)

	// mu <- sigma * <h(x),z>/<e,e>, then z <- mu L(h(x))⁻¹ e.
	st.MuEst = sz.Inner(st.HX, st.Z) / sz.Inner(e, e)
	st.Mu = st.Sigma * st.MuEst
	cone.Linv(st.HX, e, st.Z)
	sz.Scale(st.Mu, st.Z)

	// The merit moved with the cut and the new multiplier.
	f := ipmMerit[XV, ZV]{fns: fns, st: st}
	st.ObjX = f.Eval(st.X)

	if math.IsNaN(st.MuEst) {
		failf(ErrConfiguration, "the complementarity estimate is not a number")
	}
}
