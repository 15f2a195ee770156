// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"strconv"
	"strings"

	"github.com/coneopt/coneopt/krylov"
)

// Labeled pairs a canonical label with a value in one of the restart bags.
type Labeled[T any] struct {
	Name  string
	Value T
}

// Restart is the flat named-bag form of a state: vectors, reals, naturals
// and parameter strings. It is the stable surface external serializers
// work against; the vector count is fixed for a given configuration.
type Restart[XV any] struct {
	Vectors []Labeled[XV]
	Reals   []Labeled[float64]
	Nats    []Labeled[int]
	Params  []Labeled[string]
}

// Release moves the state into restart bags. The quasi-Newton histories are
// written newest first with sequential labels oldY_1, oldY_2, ... and the
// state's history slices are emptied.
func (st *State[XV]) Release() Restart[XV] {
	var r Restart[XV]
	st.vectorsOut(&r)
	st.scalarsOut(&r)
	return r
}

// Capture validates the labels and parameter strings of every bag against
// the variant whitelist and installs the values. Unknown labels or malformed
// parameter strings are rejected before any field is written. The quasi-
// Newton entries are installed in bag order, so oldY_1 must precede oldY_2.
func (st *State[XV]) Capture(r Restart[XV]) error {
	if err := st.checkLabels(r); err != nil {
		return err
	}
	if err := checkParams(r.Params); err != nil {
		return err
	}
	st.vectorsIn(r)
	st.scalarsIn(r)
	return st.Check()
}

func (st *State[XV]) vectorsOut(r *Restart[XV]) {
	r.Vectors = append(r.Vectors,
		Labeled[XV]{"x", st.X},
		Labeled[XV]{"g", st.Grad},
		Labeled[XV]{"s", st.Step},
		Labeled[XV]{"x_old", st.XOld},
		Labeled[XV]{"g_old", st.GradOld},
		Labeled[XV]{"s_old", st.StepOld},
	)
	for i, y := range st.OldY {
		r.Vectors = append(r.Vectors, Labeled[XV]{"oldY_" + strconv.Itoa(i+1), y})
	}
	for i, s := range st.OldS {
		r.Vectors = append(r.Vectors, Labeled[XV]{"oldS_" + strconv.Itoa(i+1), s})
	}
	st.OldY = nil
	st.OldS = nil
}

func (st *State[XV]) scalarsOut(r *Restart[XV]) {
	r.Reals = append(r.Reals,
		Labeled[float64]{"eps_g", st.EpsGrad},
		Labeled[float64]{"eps_s", st.EpsStep},
		Labeled[float64]{"krylov_rel_err", st.KrylovRelErr},
		Labeled[float64]{"eps_krylov", st.EpsKrylov},
		Labeled[float64]{"norm_g", st.NormGrad},
		Labeled[float64]{"norm_gtyp", st.NormGradTyp},
		Labeled[float64]{"norm_s", st.NormStep},
		Labeled[float64]{"norm_styp", st.NormStepTyp},
		Labeled[float64]{"obj_x", st.ObjX},
		Labeled[float64]{"obj_xps", st.ObjXpS},
		Labeled[float64]{"delta", st.Delta},
		Labeled[float64]{"delta_max", st.DeltaMax},
		Labeled[float64]{"eta1", st.Eta1},
		Labeled[float64]{"eta2", st.Eta2},
		Labeled[float64]{"rho", st.Rho},
		Labeled[float64]{"alpha", st.Alpha},
		Labeled[float64]{"eps_ls", st.EpsLS},
	)
	r.Nats = append(r.Nats,
		Labeled[int]{"stored_history", st.StoredHistory},
		Labeled[int]{"history_reset", st.HistoryReset},
		Labeled[int]{"iter", st.Iter},
		Labeled[int]{"iter_max", st.IterMax},
		Labeled[int]{"krylov_iter", st.KrylovIter},
		Labeled[int]{"krylov_iter_max", st.KrylovIterMax},
		Labeled[int]{"krylov_iter_total", st.KrylovIterTotal},
		Labeled[int]{"verbose", st.Verbose},
		Labeled[int]{"rejected_trustregion", st.RejectedTR},
		Labeled[int]{"linesearch_iter", st.LSIter},
		Labeled[int]{"linesearch_iter_max", st.LSIterMax},
		Labeled[int]{"linesearch_iter_total", st.LSIterTotal},
	)
	r.Params = append(r.Params,
		Labeled[string]{"algorithm_class", st.Algorithm.String()},
		Labeled[string]{"opt_stop", st.OptStop.String()},
		Labeled[string]{"krylov_stop", st.KrylovStop.String()},
		Labeled[string]{"H_type", st.HType.String()},
		Labeled[string]{"Minv_type", st.MinvType.String()},
		Labeled[string]{"dir", st.Dir.String()},
		Labeled[string]{"kind", st.Kind.String()},
	)
}

func (st *State[XV]) vectorsIn(r Restart[XV]) {
	for _, v := range r.Vectors {
		switch {
		case v.Name == "x":
			st.X = v.Value
		case v.Name == "g":
			st.Grad = v.Value
		case v.Name == "s":
			st.Step = v.Value
		case v.Name == "x_old":
			st.XOld = v.Value
		case v.Name == "g_old":
			st.GradOld = v.Value
		case v.Name == "s_old":
			st.StepOld = v.Value
		case strings.HasPrefix(v.Name, "oldY_"):
			st.OldY = append(st.OldY, v.Value)
		case strings.HasPrefix(v.Name, "oldS_"):
			st.OldS = append(st.OldS, v.Value)
		}
	}
}

func (st *State[XV]) scalarsIn(r Restart[XV]) {
	for _, v := range r.Reals {
		switch v.Name {
		case "eps_g":
			st.EpsGrad = v.Value
		case "eps_s":
			st.EpsStep = v.Value
		case "krylov_rel_err":
			st.KrylovRelErr = v.Value
		case "eps_krylov":
			st.EpsKrylov = v.Value
		case "norm_g":
			st.NormGrad = v.Value
		case "norm_gtyp":
			st.NormGradTyp = v.Value
		case "norm_s":
			st.NormStep = v.Value
		case "norm_styp":
			st.NormStepTyp = v.Value
		case "obj_x":
			st.ObjX = v.Value
		case "obj_xps":
			st.ObjXpS = v.Value
		case "delta":
			st.Delta = v.Value
		case "delta_max":
			st.DeltaMax = v.Value
		case "eta1":
			st.Eta1 = v.Value
		case "eta2":
			st.Eta2 = v.Value
		case "rho":
			st.Rho = v.Value
		case "alpha":
			st.Alpha = v.Value
		case "eps_ls":
			st.EpsLS = v.Value
		}
	}
	for _, v := range r.Nats {
		switch v.Name {
		case "stored_history":
			st.StoredHistory = v.Value
		case "history_reset":
			st.HistoryReset = v.Value
		case "iter":
			st.Iter = v.Value
		case "iter_max":
			st.IterMax = v.Value
		case "krylov_iter":
			st.KrylovIter = v.Value
		case "krylov_iter_max":
			st.KrylovIterMax = v.Value
		case "krylov_iter_total":
			st.KrylovIterTotal = v.Value
		case "verbose":
			st.Verbose = v.Value
		case "rejected_trustregion":
			st.RejectedTR = v.Value
		case "linesearch_iter":
			st.LSIter = v.Value
		case "linesearch_iter_max":
			st.LSIterMax = v.Value
		case "linesearch_iter_total":
			st.LSIterTotal = v.Value
		}
	}
	for _, v := range r.Params {
		switch v.Name {
		case "algorithm_class":
			st.Algorithm, _ = ParseAlgorithmClass(v.Value)
		case "opt_stop":
			st.OptStop, _ = ParseStoppingCondition(v.Value)
		case "krylov_stop":
			st.KrylovStop, _ = krylov.ParseStop(v.Value)
		case "H_type":
			st.HType, _ = ParseOperatorKind(v.Value)
		case "Minv_type":
			st.MinvType, _ = ParseOperatorKind(v.Value)
		case "dir":
			st.Dir, _ = ParseDirection(v.Value)
		case "kind":
			st.Kind, _ = ParseSearchKind(v.Value)
		}
	}
}

func isVectorLabel(name string) bool {
	switch name {
	case "x", "g", "s", "x_old", "g_old", "s_old":
		return true
	}
	return strings.HasPrefix(name, "oldY_") || strings.HasPrefix(name, "oldS_")
}

func isRealLabel(name string) bool {
	switch name {
	case "eps_g", "eps_s", "krylov_rel_err", "eps_krylov",
		"norm_g", "norm_gtyp", "norm_s", "norm_styp",
		"obj_x", "obj_xps", "delta", "delta_max",
		"eta1", "eta2", "rho", "alpha", "eps_ls":
		return true
	}
	return false
}

func isNatLabel(name string) bool {
	switch name {
	case "stored_history", "history_reset", "iter", "iter_max",
		"krylov_iter", "krylov_iter_max", "krylov_iter_total",
		"verbose", "rejected_trustregion",
		"linesearch_iter", "linesearch_iter_max", "linesearch_iter_total":
		return true
	}
	return false
}

func isParamLabel(name string) bool {
	switch name {
	case "algorithm_class", "opt_stop", "krylov_stop",
		"H_type", "Minv_type", "dir", "kind":
		return true
	}
	return false
}

func (st *State[XV]) checkLabels(r Restart[XV]) error {
	for _, v := range r.Vectors {
		if !isVectorLabel(v.Name) {
			return serialErrorf("invalid variable name: %s", v.Name)
		}
	}
	for _, v := range r.Reals {
		if !isRealLabel(v.Name) {
			return serialErrorf("invalid real name: %s", v.Name)
		}
	}
	for _, v := range r.Nats {
		if !isNatLabel(v.Name) {
			return serialErrorf("invalid natural name: %s", v.Name)
		}
	}
	for _, v := range r.Params {
		if !isParamLabel(v.Name) {
			return serialErrorf("invalid parameter name: %s", v.Name)
		}
	}
	return nil
}

func checkParams(params []Labeled[string]) error {
	for _, p := range params {
		ok := true
		var what string
		switch p.Name {
		case "algorithm_class":
			_, ok = ParseAlgorithmClass(p.Value)
			what = "algorithm class"
		case "opt_stop":
			_, ok = ParseStoppingCondition(p.Value)
			what = "stopping condition"
		case "krylov_stop":
			_, ok = krylov.ParseStop(p.Value)
			what = "Krylov stopping condition"
		case "H_type":
			_, ok = ParseOperatorKind(p.Value)
			what = "Hessian type"
		case "Minv_type":
			_, ok = ParseOperatorKind(p.Value)
			what = "preconditioner type"
		case "dir":
			_, ok = ParseDirection(p.Value)
			what = "line-search direction"
		case "kind":
			_, ok = ParseSearchKind(p.Value)
			what = "line-search kind"
		}
		if !ok {
			return serialErrorf("invalid %s: %s", what, p.Value)
		}
	}
	return nil
}

// IneqRestart extends the restart bags with the inequality multiplier
// vectors. Its reals carry the interior-point scalars.
type IneqRestart[XV, ZV any] struct {
	Restart[XV]
	ZVectors []Labeled[ZV]
}

// Release moves the inequality constrained state into restart bags.
func (st *IneqState[XV, ZV]) Release() IneqRestart[XV, ZV] {
	var r IneqRestart[XV, ZV]
	st.vectorsOut(&r.Restart)
	st.scalarsOut(&r.Restart)
	r.ZVectors = append(r.ZVectors,
		Labeled[ZV]{"z", st.Z},
		Labeled[ZV]{"h_x", st.HX},
	)
	r.Reals = append(r.Reals,
		Labeled[float64]{"mu", st.Mu},
		Labeled[float64]{"mu_est", st.MuEst},
		Labeled[float64]{"eps_mu", st.EpsMu},
		Labeled[float64]{"sigma", st.Sigma},
		Labeled[float64]{"gamma", st.Gamma},
	)
	return r
}

// Capture validates and installs restart bags for the inequality
// constrained variant.
func (st *IneqState[XV, ZV]) Capture(r IneqRestart[XV, ZV]) error {
	for _, v := range r.ZVectors {
		if v.Name != "z" && v.Name != "h_x" {
			return serialErrorf("invalid inequality multiplier name: %s", v.Name)
		}
	}
	core := r.Restart
	var ipReals []Labeled[float64]
	reals := core.Reals[:0:0]
	for _, v := range core.Reals {
		if isIneqRealLabel(v.Name) {
			ipReals = append(ipReals, v)
			continue
		}
		reals = append(reals, v)
	}
	core.Reals = reals
	if err := st.State.Capture(core); err != nil {
		return err
	}
	for _, v := range r.ZVectors {
		if v.Name == "z" {
			st.Z = v.Value
		} else {
			st.HX = v.Value
		}
	}
	for _, v := range ipReals {
		switch v.Name {
		case "mu":
			st.Mu = v.Value
		case "mu_est":
			st.MuEst = v.Value
		case "eps_mu":
			st.EpsMu = v.Value
		case "sigma":
			st.Sigma = v.Value
		case "gamma":
			st.Gamma = v.Value
		}
	}
	return st.IneqVars.check()
}

func isIneqRealLabel(name string) bool {
	switch name {
	case "mu", "mu_est", "eps_mu", "sigma", "gamma":
		return true
	}
	return false
}

// ConstrainedRestart carries the bags of the fully constrained variant.
type ConstrainedRestart[XV, YV, ZV any] struct {
	Restart[XV]
	YVectors []Labeled[YV]
	ZVectors []Labeled[ZV]
}

// Release moves the fully constrained state into restart bags.
func (st *ConstrainedState[XV, YV, ZV]) Release() ConstrainedRestart[XV, YV, ZV] {
	var r ConstrainedRestart[XV, YV, ZV]
	st.vectorsOut(&r.Restart)
	st.scalarsOut(&r.Restart)
	r.YVectors = append(r.YVectors, Labeled[YV]{"y", st.Y})
	r.ZVectors = append(r.ZVectors,
		Labeled[ZV]{"z", st.Z},
		Labeled[ZV]{"h_x", st.HX},
	)
	r.Reals = append(r.Reals,
		Labeled[float64]{"mu", st.Mu},
		Labeled[float64]{"mu_est", st.MuEst},
		Labeled[float64]{"eps_mu", st.EpsMu},
		Labeled[float64]{"sigma", st.Sigma},
		Labeled[float64]{"gamma", st.Gamma},
	)
	return r
}

// Capture validates and installs restart bags for the fully constrained
// variant.
func (st *ConstrainedState[XV, YV, ZV]) Capture(r ConstrainedRestart[XV, YV, ZV]) error {
	for _, v := range r.YVectors {
		if v.Name != "y" {
			return serialErrorf("invalid equality multiplier name: %s", v.Name)
		}
	}
	for _, v := range r.ZVectors {
		if v.Name != "z" && v.Name != "h_x" {
			return serialErrorf("invalid inequality multiplier name: %s", v.Name)
		}
	}
	core := r.Restart
	var ipReals []Labeled[float64]
	reals := core.Reals[:0:0]
	for _, v := range core.Reals {
		if isIneqRealLabel(v.Name) {
			ipReals = append(ipReals, v)
			continue
		}
		reals = append(reals, v)
	}
	core.Reals = reals
	if err := st.State.Capture(core); err != nil {
		return err
	}
	for _, v := range r.YVectors {
		st.Y = v.Value
	}
	for _, v := range r.ZVectors {
		if v.Name == "z" {
			st.Z = v.Value
		} else {
			st.HX = v.Value
		}
	}
	for _, v := range ipReals {
		switch v.Name {
		case "mu":
			st.Mu = v.Value
		case "mu_est":
			st.MuEst = v.Value
		case "eps_mu":
			st.EpsMu = v.Value
		case "sigma":
			st.Sigma = v.Value
		case "gamma":
			st.Gamma = v.Value
		}
	}
	return st.IneqVars.check()
}

// EqRestart extends the restart bags with the equality multiplier.
type EqRestart[XV, YV any] struct {
	Restart[XV]
	YVectors []Labeled[YV]
}

// Release moves the equality constrained state into restart bags.
func (st *EqState[XV, YV]) Release() EqRestart[XV, YV] {
	var r EqRestart[XV, YV]
	st.vectorsOut(&r.Restart)
	st.scalarsOut(&r.Restart)
	r.YVectors = append(r.YVectors, Labeled[YV]{"y", st.Y})
	return r
}

// Capture validates and installs restart bags for the equality constrained
// variant.
func (st *EqState[XV, YV]) Capture(r EqRestart[XV, YV]) error {
	for _, v := range r.YVectors {
		if v.Name != "y" {
			return serialErrorf("invalid equality multiplier name: %s", v.Name)
		}
	}
	if err := st.State.Capture(r.Restart); err != nil {
		return err
	}
	for _, v := range r.YVectors {
		st.Y = v.Value
	}
	return nil
}
