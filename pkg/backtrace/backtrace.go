// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package backtrace turns the raw, ASLR-randomized address lists uploaded in
// crash events into symbolic frames. Frame 0 of every crash points into the
// fatal signal handler, so a single subtraction against the handler's known
// file offset recovers the randomized load base for the whole stack.
package backtrace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/helixscreen/triage/pkg/platform"
	"github.com/helixscreen/triage/pkg/symbol"
)

// SharedLibMarker is the resolution text for frames inside dynamically
// loaded libraries. Their symbol tables are not shipped, so the frames stay
// deliberately opaque.
const SharedLibMarker = "<shared lib>"

// Frame is one resolved backtrace entry.
type Frame struct {
	// Addr is the raw runtime address the device reported.
	Addr uint64
	// Resolved is "name", "name+0xNN", a bare "0x..." address when no
	// symbol information applied, or SharedLibMarker.
	Resolved string
	// SharedLib marks frames classified as library code.
	SharedLib bool
}

// HexAddr formats the raw address the way devices report it.
func (f Frame) HexAddr() string {
	return fmt.Sprintf("0x%x", f.Addr)
}

// Symbolized reports whether the frame resolved to an actual name rather
// than a raw address or the shared-library marker.
func (f Frame) Symbolized() bool {
	return !f.SharedLib && !strings.HasPrefix(f.Resolved, "0x")
}

// MarshalJSON keeps the wire shape of the device-side tooling: addresses as
// 0x-prefixed hex strings.
func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Addr      string `json:"addr"`
		Resolved  string `json:"resolved"`
		SharedLib bool   `json:"is_shared_lib"`
	}{f.HexAddr(), f.Resolved, f.SharedLib})
}

// ParseAddr parses one backtrace address. Devices send hex strings with a 0x
// prefix, but older firmware omitted it. Corrupt values decode as zero so a
// single bad frame does not discard the rest of the stack.
func ParseAddr(s string) uint64 {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	addr, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return addr
}

// ParseAddrs parses a whole uploaded backtrace.
func ParseAddrs(trace []string) []uint64 {
	addrs := make([]uint64, len(trace))
	for i, s := range trace {
		addrs[i] = ParseAddr(s)
	}
	return addrs
}

// Resolve symbolizes one crash backtrace against the symbol table of the
// build that produced it. With a table whose anchor offset is known, the
// load base recovered from frame 0 applies to every main-binary frame; the
// same logical stack therefore resolves identically regardless of where
// ASLR placed the binary. Library frames are classified by address range
// and never consult the table. Without a usable table the frames pass
// through as raw addresses.
func Resolve(trace []string, p platform.Platform, tab *symbol.Table) []Frame {
	if len(trace) == 0 {
		return nil
	}
	addrs := ParseAddrs(trace)
	var base uint64
	haveBase := false
	if tab != nil {
		if anchor, ok := tab.AnchorOffset(); ok {
			base = addrs[0] - anchor
			haveBase = true
		}
	}
	frames := make([]Frame, 0, len(addrs))
	for _, addr := range addrs {
		switch {
		case platform.SharedLibAddr(addr, p):
			frames = append(frames, Frame{Addr: addr, Resolved: SharedLibMarker, SharedLib: true})
		case haveBase && addr >= base:
			frames = append(frames, Frame{Addr: addr, Resolved: tab.Lookup(addr - base)})
		default:
			// Either no symbol info, or the address sits below the
			// recovered image base and cannot be a file offset.
			frames = append(frames, Frame{Addr: addr, Resolved: fmt.Sprintf("0x%x", addr)})
		}
	}
	return frames
}
