// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solver implements the optimization engine: the iterate state with
// its layered constrained variants, quasi-Newton curvature operators built
// from step and gradient histories, trust-region and line-search
// globalization, and the GetMin driver with its manipulator hook.
//
// The engine is parametric over abstract inner-product spaces through the
// vspace traits; all linear algebra on the user's Hessian is matrix-free
// through the krylov package.
package solver

import (
	"math"

	"github.com/coneopt/coneopt/krylov"
	"github.com/coneopt/coneopt/vspace"
)

// State is the complete record of an unconstrained optimization run. The
// constrained variants embed it. All vectors are uniquely owned by the
// state; subroutines mutate it in place and operators borrow read-only
// views of the histories.
type State[XV any] struct {
	// Stopping tolerances for the gradient and the step length.
	EpsGrad float64
	EpsStep float64

	// Quasi-Newton history depth and the number of consecutive rejected
	// trust-region steps after which the history is discarded.
	StoredHistory int
	HistoryReset  int

	// Outer iteration counter and cap, and the reason we stopped.
	Iter    int
	IterMax int
	OptStop StoppingCondition

	// Inner Krylov solver telemetry.
	KrylovIter      int
	KrylovIterMax   int
	KrylovIterTotal int
	KrylovStop      krylov.Stop
	KrylovRelErr    float64
	EpsKrylov       float64

	// Globalization strategy and operator choices.
	Algorithm AlgorithmClass
	MinvType  OperatorKind
	HType     OperatorKind

	// Current and reference norms for the relative stopping tests. They
	// hold the NaN sentinel until first evaluated.
	NormGrad    float64
	NormGradTyp float64
	NormStep    float64
	NormStepTyp float64

	// Iterate, gradient and trial step with their previous values.
	X       XV
	Grad    XV
	Step    XV
	XOld    XV
	GradOld XV
	StepOld XV

	// Gradient and step difference histories, newest first.
	OldY []XV
	OldS []XV

	// Objective value at x and at the trial point x+s.
	ObjX   float64
	ObjXpS float64

	Verbose int

	// Trust-region radius, cap, acceptance thresholds and reduction ratio.
	Delta      float64
	DeltaMax   float64
	Eta1       float64
	Eta2       float64
	Rho        float64
	RejectedTR int

	// Line-search scalars.
	Alpha       float64
	LSIter      int
	LSIterMax   int
	LSIterTotal int
	EpsLS       float64
	Dir         Direction
	Kind        SearchKind
}

// NewState builds an unconstrained state around a starting iterate, with the
// engine defaults for every scalar.
func NewState[XV any](sp vspace.Space[XV], x XV) *State[XV] {
	st := &State[XV]{}
	st.initParams()
	st.initVectors(sp, x)
	return st
}

func (st *State[XV]) initParams() {
	nan := math.NaN()
	st.EpsGrad = 1e-6
	st.EpsStep = 1e-6
	st.StoredHistory = 0
	st.HistoryReset = 5
	st.Iter = 1
	st.IterMax = 10
	st.OptStop = NotConverged
	st.KrylovIter = 1
	st.KrylovIterMax = 10
	st.KrylovIterTotal = 0
	st.KrylovStop = krylov.RelativeErrorSmall
	st.KrylovRelErr = nan
	st.EpsKrylov = 1e-2
	st.Algorithm = TrustRegion
	st.MinvType = OpIdentity
	st.HType = OpIdentity
	st.NormGrad = nan
	st.NormGradTyp = nan
	st.NormStep = nan
	st.NormStepTyp = nan
	st.ObjX = nan
	st.ObjXpS = nan
	st.Verbose = 1
	st.Delta = 100
	st.DeltaMax = 100
	st.Eta1 = 0.1
	st.Eta2 = 0.9
	st.Rho = 0
	st.RejectedTR = 0
	st.Alpha = 1
	st.LSIter = 0
	st.LSIterMax = 5
	st.LSIterTotal = 0
	st.EpsLS = 1e-2
	st.Dir = SteepestDescent
	st.Kind = GoldenSection
}

func (st *State[XV]) initVectors(sp vspace.Space[XV], x XV) {
	st.X = sp.New(x)
	sp.Copy(x, st.X)
	st.Grad = sp.New(x)
	st.Step = sp.New(x)
	st.XOld = sp.New(x)
	st.GradOld = sp.New(x)
	st.StepOld = sp.New(x)
}

// Check validates the scalar parameters. It reports the first violation as
// a configuration error without touching the state.
func (st *State[XV]) Check() error {
	switch {
	case st.EpsGrad <= 0:
		return configErrorf("the gradient stopping tolerance must be positive: eps_g = %g", st.EpsGrad)
	case st.EpsStep <= 0:
		return configErrorf("the step length stopping tolerance must be positive: eps_s = %g", st.EpsStep)
	case st.StoredHistory < 0:
		return configErrorf("the quasi-Newton history depth must be nonnegative: stored_history = %d", st.StoredHistory)
	case st.HistoryReset < 0:
		return configErrorf("the history reset threshold must be nonnegative: history_reset = %d", st.HistoryReset)
	case st.Iter <= 0:
		return configErrorf("the current iteration must be positive: iter = %d", st.Iter)
	case st.IterMax <= 0:
		return configErrorf("the maximum iteration must be positive: iter_max = %d", st.IterMax)
	case st.KrylovIter <= 0:
		return configErrorf("the current Krylov iteration must be positive: krylov_iter = %d", st.KrylovIter)
	case st.KrylovIterMax <= 0:
		return configErrorf("the maximum Krylov iteration must be positive: krylov_iter_max = %d", st.KrylovIterMax)
	case st.KrylovIterTotal < 0:
		return configErrorf("the total Krylov iterations must be nonnegative: krylov_iter_total = %d", st.KrylovIterTotal)
	case st.KrylovRelErr < 0:
		return configErrorf("the Krylov relative error must be nonnegative: krylov_rel_err = %g", st.KrylovRelErr)
	case st.EpsKrylov <= 0:
		return configErrorf("the Krylov stopping tolerance must be positive: eps_krylov = %g", st.EpsKrylov)
	case st.NormGrad < 0 || (st.Iter != 1 && math.IsNaN(st.NormGrad)):
		return configErrorf("the gradient norm must be nonnegative: norm_g = %g", st.NormGrad)
	case st.NormGradTyp < 0 || (st.Iter != 1 && math.IsNaN(st.NormGradTyp)):
		return configErrorf("the typical gradient norm must be nonnegative: norm_gtyp = %g", st.NormGradTyp)
	case st.NormStep < 0 || (st.Iter != 1 && math.IsNaN(st.NormStep)):
		return configErrorf("the step norm must be nonnegative: norm_s = %g", st.NormStep)
	case st.NormStepTyp < 0 || (st.Iter != 1 && math.IsNaN(st.NormStepTyp)):
		return configErrorf("the typical step norm must be nonnegative: norm_styp = %g", st.NormStepTyp)
	case st.Iter != 1 && math.IsNaN(st.ObjX):
		return configErrorf("the objective value must be a number: obj_x = %g", st.ObjX)
	case st.Iter != 1 && math.IsNaN(st.ObjXpS):
		return configErrorf("the trial objective value must be a number: obj_xps = %g", st.ObjXpS)
	case st.Verbose < 0:
		return configErrorf("the verbosity level must be nonnegative: verbose = %d", st.Verbose)
	case st.Delta <= 0:
		return configErrorf("the trust-region radius must be positive: delta = %g", st.Delta)
	case st.DeltaMax <= 0:
		return configErrorf("the maximum trust-region radius must be positive: delta_max = %g", st.DeltaMax)
	case st.Delta > st.DeltaMax:
		return configErrorf("the trust-region radius must not exceed its maximum: delta = %g, delta_max = %g", st.Delta, st.DeltaMax)
	case st.Eta1 < 0 || st.Eta1 > 1:
		return configErrorf("the step acceptance threshold must be in [0,1]: eta1 = %g", st.Eta1)
	case st.Eta2 < 0 || st.Eta2 > 1:
		return configErrorf("the radius expansion threshold must be in [0,1]: eta2 = %g", st.Eta2)
	case st.Eta1 >= st.Eta2:
		return configErrorf("the acceptance thresholds must satisfy eta1 < eta2: eta1 = %g, eta2 = %g", st.Eta1, st.Eta2)
	case st.Rho < 0 && !math.IsNaN(st.Rho):
		return configErrorf("the reduction ratio must be nonnegative: rho = %g", st.Rho)
	case st.RejectedTR < 0:
		return configErrorf("the rejected step count must be nonnegative: rejected_trustregion = %d", st.RejectedTR)
	case st.Alpha <= 0:
		return configErrorf("the line-search step length must be positive: alpha = %g", st.Alpha)
	case st.LSIter < 0:
		return configErrorf("the line-search iteration count must be nonnegative: linesearch_iter = %d", st.LSIter)
	case st.LSIterMax <= 0:
		return configErrorf("the maximum line-search iterations must be positive: linesearch_iter_max = %d", st.LSIterMax)
	case st.LSIterTotal < 0:
		return configErrorf("the total line-search iterations must be nonnegative: linesearch_iter_total = %d", st.LSIterTotal)
	case st.EpsLS <= 0:
		return configErrorf("the line-search stopping tolerance must be positive: eps_ls = %g", st.EpsLS)
	}
	return nil
}

// EqVars carries the equality-constrained extension: the Lagrange
// multiplier for g(x) = 0.
type EqVars[YV any] struct {
	Y YV
}

// IneqVars carries the inequality-constrained extension: the cone
// multiplier, the cached constraint value, and the interior-point scalars.
// The multiplier stays strictly interior to the cone throughout.
type IneqVars[ZV any] struct {
	Z  ZV
	HX ZV

	// Barrier parameter, its complementarity estimate <h(x),z>/<e,e>, and
	// the tolerance reserved for barrier-based stopping.
	Mu    float64
	MuEst float64
	EpsMu float64

	// Centrality reduction factor and fraction-to-boundary safety factor.
	Sigma float64
	Gamma float64
}

func (iv *IneqVars[ZV]) initParams() {
	iv.Mu = 1
	iv.MuEst = math.NaN()
	iv.EpsMu = 1e-8
	iv.Sigma = 0.5
	iv.Gamma = 0.95
}

func (iv *IneqVars[ZV]) check() error {
	switch {
	case iv.Mu <= 0:
		return configErrorf("the barrier parameter must be positive: mu = %g", iv.Mu)
	case iv.EpsMu <= 0:
		return configErrorf("the barrier stopping tolerance must be positive: eps_mu = %g", iv.EpsMu)
	case iv.Sigma <= 0 || iv.Sigma > 1:
		return configErrorf("the centrality factor must be in (0,1]: sigma = %g", iv.Sigma)
	case iv.Gamma <= 0 || iv.Gamma >= 1:
		return configErrorf("the fraction-to-boundary factor must be in (0,1): gamma = %g", iv.Gamma)
	}
	return nil
}

// EqState is the state of an equality constrained problem
// min f(x) subject to g(x) = 0.
type EqState[XV, YV any] struct {
	State[XV]
	EqVars[YV]
}

// NewEqState builds an equality constrained state from the primal iterate
// and the multiplier estimate.
func NewEqState[XV, YV any](sx vspace.Space[XV], sy vspace.Space[YV], x XV, y YV) *EqState[XV, YV] {
	st := &EqState[XV, YV]{}
	st.initParams()
	st.initVectors(sx, x)
	st.Y = sy.New(y)
	sy.Copy(y, st.Y)
	return st
}

// IneqState is the state of an inequality constrained problem
// min f(x) subject to h(x) ⪰_K 0.
type IneqState[XV, ZV any] struct {
	State[XV]
	IneqVars[ZV]
}

// NewIneqState builds an inequality constrained state from the primal
// iterate and a strictly interior multiplier estimate.
func NewIneqState[XV, ZV any](sx vspace.Space[XV], sz vspace.Space[ZV], x XV, z ZV) *IneqState[XV, ZV] {
	st := &IneqState[XV, ZV]{}
	st.State.initParams()
	st.IneqVars.initParams()
	st.initVectors(sx, x)
	st.Z = sz.New(z)
	sz.Copy(z, st.Z)
	st.HX = sz.New(z)
	return st
}

// Check validates the inequality constrained state.
func (st *IneqState[XV, ZV]) Check() error {
	if err := st.State.Check(); err != nil {
		return err
	}
	return st.IneqVars.check()
}

// ConstrainedState is the fully constrained variant carrying both
// multiplier extensions.
type ConstrainedState[XV, YV, ZV any] struct {
	State[XV]
	EqVars[YV]
	IneqVars[ZV]
}

// NewConstrainedState builds a fully constrained state.
func NewConstrainedState[XV, YV, ZV any](
	sx vspace.Space[XV], sy vspace.Space[YV], sz vspace.Space[ZV],
	x XV, y YV, z ZV,
) *ConstrainedState[XV, YV, ZV] {
	st := &ConstrainedState[XV, YV, ZV]{}
	st.State.initParams()
	st.IneqVars.initParams()
	st.initVectors(sx, x)
	st.Y = sy.New(y)
	sy.Copy(y, st.Y)
	st.Z = sz.New(z)
	sz.Copy(z, st.Z)
	st.HX = sz.New(z)
	return st
}

// Check validates the fully constrained state.
func (st *ConstrainedState[XV, YV, ZV]) Check() error {
	if err := st.State.Check(); err != nil {
		return err
	}
	return st.IneqVars.check()
}
