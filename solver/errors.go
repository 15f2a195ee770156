// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"errors"
	"fmt"
)

// Failure kinds. Configuration and serialization errors surface before any
// compute; invalid-history and unsupported-operator errors halt the solver
// but leave the state inspectable; user oracle panics propagate out of
// GetMin as plain errors.
var (
	ErrConfiguration       = errors.New("solver: invalid configuration")
	ErrSerialization       = errors.New("solver: invalid serialization data")
	ErrInvalidHistory      = errors.New("solver: inconsistent quasi-Newton history")
	ErrUnsupportedOperator = errors.New("solver: external operator selected but not provided")
	ErrNotImplemented      = errors.New("solver: not implemented")
)

// failure wraps an engine error for transport through a panic, so that the
// matrix-free hot path stays free of error plumbing. GetMin recovers it at
// its boundary.
type failure struct {
	err error
}

func failf(kind error, format string, a ...any) {
	panic(failure{err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, a...))})
}

// recoverFailure converts a recovered panic into the returned error.
// Engine failures unwrap to their sentinel kind; anything else came out of a
// user oracle: an error value is returned unchanged, any other panic value
// is reported in a new error.
func recoverFailure(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(failure); ok {
		*err = f.err
		return
	}
	if e, ok := r.(error); ok {
		*err = e
		return
	}
	*err = fmt.Errorf("solver: user oracle panic: %v", r)
}

func configErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, a...))
}

func serialErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrSerialization, fmt.Sprintf(format, a...))
}
