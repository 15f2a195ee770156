// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vspace defines the abstract inner-product space and symmetric-cone
// traits the optimization engine is parametric over, together with the dense
// reference instances used throughout the test suites.
//
// A Space describes a Hilbert space through create/copy/scale/zero/axpy/inner
// primitives; every vector is an opaque value of the instance type V and all
// arithmetic happens through the trait. A Cone adds the Euclidean Jordan
// algebra operations required by the inequality-constrained methods.
package vspace

import "math"

// Space is an inner-product (Hilbert) space over the reals.
// Vectors are values of type V owned by the caller; operations that write
// results expect their destination to be allocated with New from a prototype
// of the right shape.
type Space[V any] interface {
	// New allocates a fresh vector with the same shape as the prototype.
	// The contents are unspecified.
	New(proto V) V

	// Copy writes x into dst without allocating.
	Copy(x, dst V)

	// Scale computes x <- alpha * x.
	Scale(alpha float64, x V)

	// Zero hard-sets x <- 0. This is distinct from Scale(0,x): the hard set
	// stays well-defined when entries of x are NaN.
	Zero(x V)

	// Axpy computes y <- alpha*x + y.
	Axpy(alpha float64, x, y V)

	// Inner returns <x,y>.
	Inner(x, y V) float64
}

// Norm returns the induced norm sqrt(<x,x>).
func Norm[V any](s Space[V], x V) float64 {
	return math.Sqrt(s.Inner(x, x))
}

// Cone is a symmetric cone over a space: the algebra operations of a
// Euclidean Jordan algebra on the constraint space Z.
type Cone[V any] interface {
	// Prod computes the Jordan product z <- x ∘ y.
	Prod(x, y, z V)

	// ID writes the algebra identity element e into x, so that x ∘ e = x.
	ID(x V)

	// Linv computes z <- L(x)⁻¹ y where L(x)y = x ∘ y.
	Linv(x, y, z V)

	// Srch returns the largest alpha >= 0 with x + alpha*dx still in the
	// cone, or a negative value when every alpha is feasible.
	Srch(x, dx V) float64
}

// Operator is a linear map between two spaces applied matrix-free.
type Operator[D, C any] interface {
	// Apply computes y <- A x.
	Apply(x D, y C)
}

// OpFunc adapts a function to the Operator interface.
type OpFunc[D, C any] func(x D, y C)

func (f OpFunc[D, C]) Apply(x D, y C) { f(x, y) }

// Identity is the identity operator on any space whose vectors can be copied
// by the given Space.
type Identity[V any] struct {
	X Space[V]
}

func (op Identity[V]) Apply(x, y V) { op.X.Copy(x, y) }
