// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vspace

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Rn is the dense Euclidean space on []float64 with the standard dot product.
type Rn struct{}

func (Rn) New(proto []float64) []float64 { return make([]float64, len(proto)) }

func (Rn) Copy(x, dst []float64) { copy(dst, x) }

func (Rn) Scale(alpha float64, x []float64) { floats.Scale(alpha, x) }

func (Rn) Zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

func (Rn) Axpy(alpha float64, x, y []float64) { floats.AddScaled(y, alpha, x) }

func (Rn) Inner(x, y []float64) float64 { return floats.Dot(x, y) }

// Orthant is the nonnegative orthant cone on Rn: the Jordan algebra of
// elementwise products. It turns Rn into the constraint space for ordinary
// componentwise inequalities h(x) >= 0.
type Orthant struct{}

func (Orthant) Prod(x, y, z []float64) {
	for i := range z {
		z[i] = x[i] * y[i]
	}
}

func (Orthant) ID(x []float64) {
	for i := range x {
		x[i] = 1
	}
}

func (Orthant) Linv(x, y, z []float64) {
	for i := range z {
		z[i] = y[i] / x[i]
	}
}

func (Orthant) Srch(x, dx []float64) float64 {
	alpha := -1.0
	for i := range x {
		if dx[i] < 0 {
			if a := -x[i] / dx[i]; alpha < 0 || a < alpha {
				alpha = a
			}
		}
	}
	if alpha < 0 {
		return -1
	}
	return math.Max(alpha, 0)
}
