// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

// AlgorithmClass selects the globalization strategy.
type AlgorithmClass int

const (
	TrustRegion AlgorithmClass = iota
	LineSearch
)

var algorithmNames = map[AlgorithmClass]string{
	TrustRegion: "TrustRegion",
	LineSearch:  "LineSearch",
}

func (a AlgorithmClass) String() string { return algorithmNames[a] }

// StoppingCondition records why the outer iteration stopped.
type StoppingCondition int

const (
	NotConverged StoppingCondition = iota
	RelativeGradientSmall
	RelativeStepSmall
	MaxItersExceeded
	// ExternalStop is raised by a state manipulator; its canonical string
	// is "External".
	ExternalStop
)

var stoppingNames = map[StoppingCondition]string{
	NotConverged:          "NotConverged",
	RelativeGradientSmall: "RelativeGradientSmall",
	RelativeStepSmall:     "RelativeStepSmall",
	MaxItersExceeded:      "MaxItersExceeded",
	ExternalStop:          "External",
}

func (s StoppingCondition) String() string { return stoppingNames[s] }

// OperatorKind names a Hessian approximation or preconditioner choice.
type OperatorKind int

const (
	OpIdentity OperatorKind = iota
	OpScaledIdentity
	OpBFGS
	OpInvBFGS
	OpSR1
	OpInvSR1
	// OpExternal defers to the user-supplied operator or Hessian-vector
	// product.
	OpExternal
)

var operatorNames = map[OperatorKind]string{
	OpIdentity:       "Identity",
	OpScaledIdentity: "ScaledIdentity",
	OpBFGS:           "BFGS",
	OpInvBFGS:        "InvBFGS",
	OpSR1:            "SR1",
	OpInvSR1:         "InvSR1",
	OpExternal:       "External",
}

func (o OperatorKind) String() string { return operatorNames[o] }

// Direction selects the line-search direction family.
type Direction int

const (
	SteepestDescent Direction = iota
	FletcherReeves
	PolakRibiere
	HestenesStiefel
	// BFGSDir applies the inverse BFGS operator to the gradient; its
	// canonical string is "BFGS".
	BFGSDir
	NewtonCG
)

var directionNames = map[Direction]string{
	SteepestDescent: "SteepestDescent",
	FletcherReeves:  "FletcherReeves",
	PolakRibiere:    "PolakRibiere",
	HestenesStiefel: "HestenesStiefel",
	BFGSDir:         "BFGS",
	NewtonCG:        "NewtonCG",
}

func (d Direction) String() string { return directionNames[d] }

// SearchKind selects the line-search step rule.
type SearchKind int

const (
	Brents SearchKind = iota
	GoldenSection
	BackTracking
	TwoPointA
	TwoPointB
)

var searchNames = map[SearchKind]string{
	Brents:        "Brents",
	GoldenSection: "GoldenSection",
	BackTracking:  "BackTracking",
	TwoPointA:     "TwoPointA",
	TwoPointB:     "TwoPointB",
}

func (k SearchKind) String() string { return searchNames[k] }

// Location tells a state manipulator where in the optimization loop it is
// being invoked.
type Location int

const (
	// AfterStepBeforeGradient occurs after x <- x + s but before the
	// gradient at the new iterate is computed. By this point obj_x has been
	// set to obj_xps.
	AfterStepBeforeGradient Location = iota

	// EndOfOptimizationIteration occurs last in the loop, after the
	// iteration count has advanced and the stopping condition was checked.
	EndOfOptimizationIteration
)

var locationNames = map[Location]string{
	AfterStepBeforeGradient:    "AfterStepBeforeGradient",
	EndOfOptimizationIteration: "EndOfOptimizationIteration",
}

func (l Location) String() string { return locationNames[l] }

func parseName[E comparable](names map[E]string, s string) (E, bool) {
	for v, n := range names {
		if n == s {
			return v, true
		}
	}
	var zero E
	return zero, false
}

// ParseAlgorithmClass and friends convert canonical parameter strings back
// to their values. The string sets are the wire contract of the restart
// surface: anything else is rejected at capture time.
func ParseAlgorithmClass(s string) (AlgorithmClass, bool) { return parseName(algorithmNames, s) }

func ParseStoppingCondition(s string) (StoppingCondition, bool) { return parseName(stoppingNames, s) }

func ParseOperatorKind(s string) (OperatorKind, bool) { return parseName(operatorNames, s) }

func ParseDirection(s string) (Direction, bool) { return parseName(directionNames, s) }

func ParseSearchKind(s string) (SearchKind, bool) { return parseName(searchNames, s) }
