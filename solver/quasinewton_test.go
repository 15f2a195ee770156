// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/coneopt/coneopt/vspace"
)

// historyState builds a state carrying the given (s,y) history, newest
// first.
func historyState(oldS, oldY [][]float64) *State[[]float64] {
	sp := vspace.Rn{}
	st := NewState[[]float64](sp, make([]float64, len(oldS[0])))
	st.StoredHistory = len(oldS)
	st.OldS = oldS
	st.OldY = oldY
	return st
}

// denseQuasi runs the rank-update recursions on explicit matrices as the
// reference: bfgs selects the rank-two update, otherwise SR1.
func denseQuasi(n int, oldS, oldY [][]float64, bfgs bool) *mat.Dense {
	b := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		b.Set(i, i, 1)
	}
	// Oldest pair first.
	for i := len(oldS) - 1; i >= 0; i-- {
		s := mat.NewVecDense(n, oldS[i])
		y := mat.NewVecDense(n, oldY[i])
		bs := mat.NewVecDense(n, nil)
		bs.MulVec(b, s)
		if bfgs {
			var up1, up2 mat.Dense
			up1.Outer(1/mat.Dot(bs, s), bs, bs)
			up2.Outer(1/mat.Dot(y, s), y, y)
			b.Sub(b, &up1)
			b.Add(b, &up2)
		} else {
			d := mat.NewVecDense(n, nil)
			d.SubVec(y, bs)
			var up mat.Dense
			up.Outer(1/mat.Dot(d, s), d, d)
			b.Add(b, &up)
		}
	}
	return b
}

var quasiHist = struct {
	s, y [][]float64
}{
	// Newest first, every pair with <y,s> > 0.
	s: [][]float64{{0.3, -0.1, 0.5}, {1, 0.2, -0.4}, {-0.2, 0.8, 0.1}},
	y: [][]float64{{0.5, -0.3, 0.9}, {1.4, 0.1, -0.2}, {-0.1, 1.1, 0.3}},
}

func TestBFGSMatchesDenseRecursion(t *testing.T) {
	sp := vspace.Rn{}
	st := historyState(quasiHist.s, quasiHist.y)
	op := bfgsOp[[]float64]{sp: sp, state: st}

	p := []float64{0.7, -1.2, 0.4}
	got := make([]float64, 3)
	op.Apply(p, got)

	ref := denseQuasi(3, quasiHist.s, quasiHist.y, true)
	want := mat.NewVecDense(3, nil)
	want.MulVec(ref, mat.NewVecDense(3, p))

	for i := range got {
		assert.InDelta(t, want.AtVec(i), got[i], 1e-12)
	}
}

func TestSR1MatchesDenseRecursion(t *testing.T) {
	sp := vspace.Rn{}
	st := historyState(quasiHist.s, quasiHist.y)
	op := sr1Op[[]float64]{sp: sp, state: st}

	p := []float64{0.7, -1.2, 0.4}
	got := make([]float64, 3)
	op.Apply(p, got)

	ref := denseQuasi(3, quasiHist.s, quasiHist.y, false)
	want := mat.NewVecDense(3, nil)
	want.MulVec(ref, mat.NewVecDense(3, p))

	for i := range got {
		assert.InDelta(t, want.AtVec(i), got[i], 1e-12)
	}
}

// The two-loop recursion with H0 = I inverts the direct recursion with
// B0 = I built from the same pairs.
func TestInvBFGSInvertsBFGS(t *testing.T) {
	sp := vspace.Rn{}
	st := historyState(quasiHist.s, quasiHist.y)
	direct := bfgsOp[[]float64]{sp: sp, state: st}
	inverse := invBFGSOp[[]float64]{sp: sp, state: st}

	p := []float64{0.7, -1.2, 0.4}
	bp := make([]float64, 3)
	back := make([]float64, 3)
	direct.Apply(p, bp)
	inverse.Apply(bp, back)

	for i := range p {
		assert.InDelta(t, p[i], back[i], 1e-10)
	}
}

func TestInvSR1SwapsHistory(t *testing.T) {
	sp := vspace.Rn{}
	st := historyState(quasiHist.s, quasiHist.y)
	inv := sr1Op[[]float64]{sp: sp, state: st, swap: true}

	swapped := historyState(quasiHist.y, quasiHist.s)
	plain := sr1Op[[]float64]{sp: sp, state: swapped}

	p := []float64{0.7, -1.2, 0.4}
	a := make([]float64, 3)
	b := make([]float64, 3)
	inv.Apply(p, a)
	plain.Apply(p, b)
	assert.Equal(t, b, a)
}

func TestScaledIdentity(t *testing.T) {
	sp := vspace.Rn{}
	st := NewState[[]float64](sp, []float64{0, 0})
	st.NormGrad = 8
	st.DeltaMax = 4

	op := scaledIdentityOp[[]float64]{sp: sp, state: st}
	got := make([]float64, 2)
	op.Apply([]float64{1, -2}, got)
	assert.Equal(t, []float64{2, -4}, got)
}

func TestBFGSRejectsInvalidHistory(t *testing.T) {
	sp := vspace.Rn{}
	st := historyState(quasiHist.s, quasiHist.y)
	st.OldY = st.OldY[:2] // length mismatch

	op := bfgsOp[[]float64]{sp: sp, state: st}
	require.Panics(t, func() {
		op.Apply([]float64{1, 0, 0}, make([]float64, 3))
	})
}

func TestBFGSRejectsNonpositivePair(t *testing.T) {
	sp := vspace.Rn{}
	st := historyState(
		[][]float64{{1, 0}},
		[][]float64{{-1, 0}}, // <y,s> < 0
	)
	op := bfgsOp[[]float64]{sp: sp, state: st}
	require.Panics(t, func() {
		op.Apply([]float64{1, 1}, make([]float64, 2))
	})
}

func TestUpdateQuasiMaintainsHistory(t *testing.T) {
	sp := vspace.Rn{}
	st := NewState[[]float64](sp, []float64{0, 0})
	st.StoredHistory = 2
	st.Dir = BFGSDir

	st.XOld = []float64{0, 0}
	st.X = []float64{1, 0}
	st.GradOld = []float64{-2, 0}
	st.Grad = []float64{-1, 0}
	updateQuasi[[]float64](sp, st)
	require.Len(t, st.OldS, 1)
	assert.Equal(t, []float64{1, 0}, st.OldS[0])
	assert.Equal(t, []float64{1, 0}, st.OldY[0])

	// A pair with nonpositive curvature is discarded under BFGS.
	st.X = []float64{2, 0}
	st.XOld = []float64{1, 0}
	st.Grad = []float64{-3, 0}
	st.GradOld = []float64{-1, 0}
	updateQuasi[[]float64](sp, st)
	require.Len(t, st.OldS, 1)

	// New pairs push in front; the depth stays bounded.
	for i := 0; i < 3; i++ {
		st.XOld = []float64{float64(i), 0}
		st.X = []float64{float64(i + 1), 0}
		st.GradOld = []float64{0, float64(i)}
		st.Grad = []float64{1, float64(i)}
		updateQuasi[[]float64](sp, st)
	}
	require.Len(t, st.OldS, 2)
	require.Len(t, st.OldY, 2)
}
