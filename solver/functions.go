// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"github.com/coneopt/coneopt/vspace"
)

// ScalarFunc is a scalar valued function f : X -> R with first and second
// derivative oracles. HessVec is the user's Hessian-vector product; whether
// it is actually consulted depends on the state's Hessian approximation
// choice.
type ScalarFunc[XV any] interface {
	Eval(x XV) float64
	Grad(x XV, g XV)
	HessVec(x, dx, hdx XV)
}

// VectorFunc is a vector valued function f : X -> Y with its Jacobian p,
// Jacobian adjoint ps, and second-derivative adjoint pps.
type VectorFunc[XV, YV any] interface {
	Eval(x XV, y YV)
	P(x, dx XV, y YV)
	Ps(x XV, dy YV, z XV)
	Pps(x, dx XV, dy YV, z XV)
}

// Functions bundles everything an unconstrained solve needs: the space, the
// objective, and the optional externally supplied Hessian and
// preconditioner operators.
type Functions[XV any] struct {
	X vspace.Space[XV]
	F ScalarFunc[XV]

	// Hess is consulted only when the state selects an External Hessian;
	// when nil the objective's HessVec stands in.
	Hess vspace.Operator[XV, XV]

	// Minv is required when the state selects an External preconditioner.
	Minv vspace.Operator[XV, XV]
}

// hessian resolves the Hessian approximation for the current state: one of
// the internal operators, or the user's Hessian-vector product for the
// External choice.
func (fns *Functions[XV]) hessian(st *State[XV]) vspace.Operator[XV, XV] {
	switch st.HType {
	case OpIdentity:
		return vspace.Identity[XV]{X: fns.X}
	case OpScaledIdentity:
		return scaledIdentityOp[XV]{sp: fns.X, state: st}
	case OpBFGS:
		return bfgsOp[XV]{sp: fns.X, state: st}
	case OpSR1:
		return sr1Op[XV]{sp: fns.X, state: st}
	case OpExternal:
		if fns.Hess != nil {
			return fns.Hess
		}
		f := fns.F
		return vspace.OpFunc[XV, XV](func(dx, hdx XV) {
			f.HessVec(st.X, dx, hdx)
		})
	default:
		failf(ErrUnsupportedOperator, "not a valid Hessian approximation: %v", st.HType)
	}
	return nil
}

// preconditioner resolves the Krylov preconditioner for the current state.
func (fns *Functions[XV]) preconditioner(st *State[XV]) vspace.Operator[XV, XV] {
	switch st.MinvType {
	case OpIdentity:
		return vspace.Identity[XV]{X: fns.X}
	case OpInvBFGS:
		return invBFGSOp[XV]{sp: fns.X, state: st}
	case OpInvSR1:
		return sr1Op[XV]{sp: fns.X, state: st, swap: true}
	case OpExternal:
		if fns.Minv == nil {
			failf(ErrUnsupportedOperator, "an externally defined preconditioner must be provided explicitly")
		}
		return fns.Minv
	default:
		failf(ErrUnsupportedOperator, "not a valid preconditioner: %v", st.MinvType)
	}
	return nil
}

// check validates the bundle before any compute.
func (fns *Functions[XV]) check(st *State[XV]) error {
	if fns.X == nil {
		return configErrorf("every problem requires a vector space")
	}
	if fns.F == nil {
		return configErrorf("every optimization problem requires an objective function")
	}
	if st.MinvType == OpExternal && fns.Minv == nil {
		return ErrUnsupportedOperator
	}
	switch st.MinvType {
	case OpIdentity, OpInvBFGS, OpInvSR1, OpExternal:
	default:
		return configErrorf("%v cannot serve as a preconditioner", st.MinvType)
	}
	switch st.HType {
	case OpIdentity, OpScaledIdentity, OpBFGS, OpSR1, OpExternal:
	default:
		return configErrorf("%v cannot serve as a Hessian approximation", st.HType)
	}
	return nil
}
