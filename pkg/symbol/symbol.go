// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package symbol parses the nm-format symbol dumps produced for each release
// build and answers nearest-symbol queries against them. A dump is the output
// of `nm -nC` over the shipped binary: one symbol per line, sorted by address.
// Tables are queried with file offsets, i.e. addresses with the randomized
// load base already subtracted.
package symbol

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// AnchorSymbol is the function every uploaded backtrace starts in: the fatal
// signal handler the firmware installs at startup. Frame 0 of a crash always
// points into it, which is what makes the load base recoverable.
const AnchorSymbol = "crash_signal_handler"

// Entry is a single text symbol from the dump.
type Entry struct {
	Addr uint64
	Name string
}

// Table is an address-ordered index of the text symbols of one build on one
// platform. The zero Table is valid and resolves nothing.
type Table struct {
	entries   []Entry
	anchorOff uint64
	hasAnchor bool
}

// Boundary pseudo-symbols the linker and C runtime emit into the text address
// range. They are real table entries but never meaningful call sites, so a
// frame that resolves to one of them means the unwinder landed in a gap
// between functions.
var boundarySymbols = map[string]bool{
	"data_start":                true,
	"_edata":                    true,
	"_end":                      true,
	"__bss_start":               true,
	"__bss_start__":             true,
	"__bss_end__":               true,
	"__data_start":              true,
	"__dso_handle":              true,
	"__libc_csu_init":           true,
	"__libc_csu_fini":           true,
	"_fini":                     true,
	"_init":                     true,
	"_fp_hw":                    true,
	"_IO_stdin_used":            true,
	"__init_array_start":        true,
	"__init_array_end":          true,
	"__fini_array_start":        true,
	"__fini_array_end":          true,
	"__FRAME_END__":             true,
	"__GNU_EH_FRAME_HDR":        true,
	"__TMC_END__":               true,
	"__ehdr_start":              true,
	"__exidx_start":             true,
	"__exidx_end":               true,
	"_GLOBAL_OFFSET_TABLE_":     true,
	"_DYNAMIC":                  true,
	"_PROCEDURE_LINKAGE_TABLE_": true,
	"completed.0":               true,
}

// IsBoundary reports whether name is a linker/runtime boundary pseudo-symbol.
func IsBoundary(name string) bool {
	return boundarySymbols[name]
}

// Parse builds a Table from an nm symbol dump. Only text symbols (types
// T/t/W/w) are kept; malformed lines are expected noise and skipped. Symbol
// names may contain spaces once demangled, so everything after the type
// column belongs to the name. For entries sharing an address the last parsed
// line wins.
func Parse(data []byte) *Table {
	tab := &Table{}
	for sc := bufio.NewScanner(bytes.NewReader(data)); sc.Scan(); {
		addr, name, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		tab.entries = append(tab.entries, Entry{Addr: addr, Name: name})
	}
	// Dumps are normally pre-sorted (nm -n), but nothing guarantees it.
	// The sort must be stable so that for duplicate addresses lookups
	// keep favoring the later line.
	sort.SliceStable(tab.entries, func(i, j int) bool {
		return tab.entries[i].Addr < tab.entries[j].Addr
	})
	for _, ent := range tab.entries {
		if strings.Contains(ent.Name, AnchorSymbol) {
			tab.anchorOff = ent.Addr
			tab.hasAnchor = true
			break
		}
	}
	return tab
}

func parseLine(line string) (uint64, string, bool) {
	addrStr, rest := nextField(line)
	typ, name := nextField(rest)
	name = strings.TrimSpace(name)
	if addrStr == "" || typ == "" || name == "" {
		return 0, "", false
	}
	switch typ {
	case "T", "t", "W", "w":
	default:
		return 0, "", false
	}
	addr, err := strconv.ParseUint(addrStr, 16, 64)
	if err != nil || addr == 0 {
		return 0, "", false
	}
	return addr, demangleName(name), true
}

// nextField splits off the first whitespace-separated token, keeping the
// remainder intact. strings.Fields would tear apart demangled C++ names like
// "std::vector<int, std::allocator<int> >::push_back(int const&)".
func nextField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	cut := strings.IndexAny(s, " \t")
	if cut == -1 {
		return s, ""
	}
	return s[:cut], s[cut+1:]
}

// demangleName turns Itanium-mangled C++ names into readable form. Dumps
// made with `nm -C` already arrive demangled, in which case this is a no-op.
func demangleName(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}
	if d, err := demangle.ToString(name); err == nil {
		return d
	}
	return name
}

// Lookup resolves a file offset to "name" or "name+0xNN" for the nearest
// symbol at or below the offset. Offsets below the first known symbol (and
// any offset against an empty table) come back as a bare hex address, so
// callers can tell "no symbol info" apart from a real match. Offsets that
// land on a boundary pseudo-symbol come back as "(unknown @ 0x...)".
func (tab *Table) Lookup(off uint64) string {
	idx := sort.Search(len(tab.entries), func(i int) bool {
		return tab.entries[i].Addr > off
	})
	if idx == 0 {
		return fmt.Sprintf("0x%x", off)
	}
	ent := tab.entries[idx-1]
	if IsBoundary(ent.Name) {
		return fmt.Sprintf("(unknown @ 0x%x)", off)
	}
	if delta := off - ent.Addr; delta != 0 {
		return fmt.Sprintf("%v+0x%x", ent.Name, delta)
	}
	return ent.Name
}

// AnchorOffset returns the file offset of the anchor symbol, if the table
// has one. Without it the randomized load base of a crash cannot be
// recovered and resolution runs in degraded mode.
func (tab *Table) AnchorOffset() (uint64, bool) {
	return tab.anchorOff, tab.hasAnchor
}

// Len returns the number of usable text symbols in the table.
func (tab *Table) Len() int {
	return len(tab.entries)
}

// Entries returns a copy of the table contents in address order.
func (tab *Table) Entries() []Entry {
	return append([]Entry{}, tab.entries...)
}
