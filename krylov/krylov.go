// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package krylov provides the matrix-free subproblem solvers of the
// optimization engine: restarted GMRES with split preconditioning, and the
// truncated CG and truncated MINRES iterations adapted for off-center trust
// regions with a null-space projector.
//
// All solvers work over an abstract inner-product space and touch the
// operator A only through matrix-vector products.
package krylov

import (
	"math"

	"github.com/coneopt/coneopt/vspace"
)

// Stop reports why a Krylov iteration terminated.
type Stop int

const (
	// NegativeCurvature means a direction with nonpositive curvature was found.
	NegativeCurvature Stop = iota
	// RelativeErrorSmall means the residual dropped below tolerance.
	RelativeErrorSmall
	// MaxItersExceeded means the iteration cap was reached.
	MaxItersExceeded
	// TrustRegionViolated means the iterate hit the trust-region boundary.
	TrustRegionViolated
)

var stopNames = map[Stop]string{
	NegativeCurvature:   "NegativeCurvature",
	RelativeErrorSmall:  "RelativeErrorSmall",
	MaxItersExceeded:    "MaxItersExceeded",
	TrustRegionViolated: "TrustRegionViolated",
}

func (s Stop) String() string {
	if name, ok := stopNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseStop converts a canonical stop string back to its value.
func ParseStop(name string) (Stop, bool) {
	for s, n := range stopNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// boundaryStep returns the positive root sigma of
//
//	a2 sigma² + a1 sigma + (a0 - delta²) = 0
//
// which places u + sigma*p on the trust-region boundary given
// a0 = ‖u‖², a1 = 2<u,p> and a2 = ‖p‖² in the trust-region inner product.
func boundaryStep(a0, a1, a2, delta float64) float64 {
	h := a1 / 2
	return (-h + math.Sqrt(h*h+a2*(delta*delta-a0))) / a2
}

// trCoefs evaluates the three trust-region inner products of the offset u
// and direction p under the shape operator.
func trCoefs[V any](s vspace.Space[V], trOp vspace.Operator[V, V], u, p, work V) (a0, a1, a2 float64) {
	trOp.Apply(u, work)
	a0 = s.Inner(u, work)
	a1 = 2 * s.Inner(p, work)
	trOp.Apply(p, work)
	a2 = s.Inner(p, work)
	return a0, a1, a2
}
