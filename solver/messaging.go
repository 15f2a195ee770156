// Copyright ©2025 The coneopt Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"io"
)

// Messaging is the sink the engine writes status lines to. A nil Messaging
// or a nil writer is silent. Levels follow the state's verbosity: level 1
// carries the per-iteration state lines, level 2 adds the inner Krylov
// diagnostics.
type Messaging struct {
	Out io.Writer
}

func (m *Messaging) print(verbose, level int, format string, a ...any) {
	if m == nil || m.Out == nil || verbose < level {
		return
	}
	fmt.Fprintf(m.Out, format, a...)
}
