// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

// checkStop evaluates the stopping conditions at the end of an outer
// iteration in a fixed order: relative gradient, relative step, iteration
// cap, then External. An External condition set by a manipulator is
// returned only when none of the earlier tests fires.
func checkStop[XV any](st *State[XV]) StoppingCondition {
	if st.NormGrad < st.EpsGrad*st.NormGradTyp {
		return RelativeGradientSmall
	}
	if st.NormStep < st.EpsStep*st.NormStepTyp {
		return RelativeStepSmall
	}
	if st.Iter >= st.IterMax {
		return MaxItersExceeded
	}
	if st.OptStop == ExternalStop {
		return ExternalStop
	}
	return NotConverged
}
