// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package signature reduces resolved backtraces to short stable keys that
// group structurally identical crashes across devices, uploads and
// ASLR-randomized runs.
package signature

import (
	"fmt"
	"strings"

	"github.com/helixscreen/triage/pkg/backtrace"
	"github.com/helixscreen/triage/pkg/hash"
)

// Unknown is the grouping key for backtraces with no usable frames at all.
const Unknown = "unknown"

// Compute derives the grouping key for a resolved backtrace.
//
// Frame 0 is the signal handler and identical for every crash, and
// shared-library frames carry no information, so neither contributes. When
// at least one remaining frame resolved to a symbol, the key hashes the
// offset-stripped names: the exact fault address inside a function changes
// between builds of the same bug and must not split groups. When nothing
// resolved (missing symbols, unknown build), the key falls back to hashing
// each frame's distance from the first main-binary address, which cancels
// out the randomized load base just like the anchor subtraction would.
func Compute(frames []backtrace.Frame) string {
	var parts []string
	if hasSymbols(frames) {
		for i, f := range frames {
			if i == 0 || f.SharedLib {
				continue
			}
			parts = append(parts, TrimOffset(f.Resolved))
		}
	} else if base, ok := relativeBase(frames); ok {
		for i, f := range frames {
			if i == 0 || f.SharedLib {
				continue
			}
			if f.Addr == 0 {
				// Corrupt frame: no address to take a delta from. Its
				// resolved text is at least stable across load bases.
				parts = append(parts, f.Resolved)
				continue
			}
			parts = append(parts, fmt.Sprintf("rel+0x%x", f.Addr-base))
		}
	}
	if len(parts) == 0 {
		return Unknown
	}
	sig := hash.Hash([]byte(strings.Join(parts, "\n")))
	return sig.Short()
}

func hasSymbols(frames []backtrace.Frame) bool {
	for i, f := range frames {
		if i == 0 {
			continue
		}
		if f.Symbolized() {
			return true
		}
	}
	return false
}

// relativeBase picks the reference point for the degraded-mode key: the
// first main-binary address in the stack. A zero address there means the
// frame was corrupt and nothing can anchor the deltas.
func relativeBase(frames []backtrace.Frame) (uint64, bool) {
	for _, f := range frames {
		if f.SharedLib {
			continue
		}
		return f.Addr, f.Addr != 0
	}
	return 0, false
}

// TrimOffset drops the trailing "+0x..." within-function offset from a
// resolved name.
func TrimOffset(name string) string {
	if idx := strings.LastIndex(name, "+0x"); idx > 0 {
		return name[:idx]
	}
	return name
}
