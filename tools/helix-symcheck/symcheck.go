// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// helix-symcheck validates a symbol dump before it is uploaded to the
// release store: it must parse, contain text symbols and (for crash triage
// to work) contain the fatal signal handler. Release packaging runs it
// against every nm output it ships.
//
//	helix-symcheck v0.9.12/pi.sym
//	helix-symcheck -lookup 0x1060 v0.9.12/pi.sym
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/helixscreen/triage/pkg/symbol"
	"github.com/helixscreen/triage/pkg/tool"
)

var flagLookup = flag.String("lookup", "", "resolve this file offset against the table")

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		fmt.Fprintf(os.Stderr, "usage: helix-symcheck [flags] file.sym\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	file := flag.Args()[0]
	data, err := os.ReadFile(file)
	if err != nil {
		tool.Failf("failed to read %v: %v", file, err)
	}
	if len(data) == 0 {
		tool.Failf("%v: file is empty (broken upload?)", file)
	}
	tab := symbol.Parse(data)
	if tab.Len() == 0 {
		tool.Failf("%v: no text symbols found", file)
	}
	ents := tab.Entries()
	boundary := 0
	for _, ent := range ents {
		if symbol.IsBoundary(ent.Name) {
			boundary++
		}
	}
	fmt.Printf("%v text symbols (0x%x-0x%x), %v boundary markers\n",
		tab.Len(), ents[0].Addr, ents[len(ents)-1].Addr, boundary)
	if off, ok := tab.AnchorOffset(); ok {
		fmt.Printf("anchor %v at 0x%x\n", symbol.AnchorSymbol, off)
	} else {
		tool.Failf("%v not found: crash triage cannot reverse ASLR with this dump", symbol.AnchorSymbol)
	}
	if *flagLookup != "" {
		off, err := parseOffset(*flagLookup)
		if err != nil {
			tool.Fail(err)
		}
		fmt.Printf("0x%x -> %v\n", off, tab.Lookup(off))
	}
}

func parseOffset(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	off, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse offset %q: %v", s, err)
	}
	return off, nil
}
