// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	dump := `
0000000000001000 T main
0000000000001050 t helper_func
0000000000001100 T crash_signal_handler
0000000000001200 W weak_func
0000000000001300 w weak_local
0000000000002000 D some_data
0000000000002100 B bss_thing
not-a-line
0000000000001400
xyz T broken_addr
0000000000000000 T null_sym
0000000000001500 T std::vector<int, std::allocator<int> >::push_back(int const&)
0000000000001600 T _Z3foov
`
	tab := Parse([]byte(dump))
	assert.Equal(t, 7, tab.Len())
	assert.Equal(t, "main", tab.Lookup(0x1000))
	// Demangled names keep their internal spaces.
	assert.Equal(t, "std::vector<int, std::allocator<int> >::push_back(int const&)",
		tab.Lookup(0x1500))
	// Mangled names are demangled at parse time.
	assert.Equal(t, "foo()", tab.Lookup(0x1600))
	off, ok := tab.AnchorOffset()
	require.True(t, ok)
	assert.Equal(t, uint64(0x1100), off)
}

func TestParseUnsorted(t *testing.T) {
	dump := `
0000000000002000 T second
0000000000001000 T first
`
	tab := Parse([]byte(dump))
	require.Equal(t, 2, tab.Len())
	assert.Equal(t, "first", tab.Lookup(0x1000))
	assert.Equal(t, "first+0xfff", tab.Lookup(0x1fff))
	assert.Equal(t, "second", tab.Lookup(0x2000))
}

func TestLookup(t *testing.T) {
	tab := Parse([]byte(`
0000000000001000 T main
0000000000001050 T foo
0000000000001100 T crash_signal_handler
0000000000001200 T bar
`))
	tests := []struct {
		off  uint64
		want string
	}{
		{0x0fff, "0xfff"}, // below the first symbol
		{0x1000, "main"},
		{0x1001, "main+0x1"},
		{0x104f, "main+0x4f"},
		{0x1050, "foo"},
		{0x1060, "foo+0x10"},
		{0x1100, "crash_signal_handler"},
		{0x1210, "bar+0x10"},
		{0x9999, "bar+0x8d99"}, // far past the last symbol, still attributed
	}
	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			assert.Equal(t, test.want, tab.Lookup(test.off))
		})
	}
}

// Every offset in [sym, nextSym) must resolve to sym.
func TestLookupMonotonic(t *testing.T) {
	tab := Parse([]byte(`
0000000000001000 T a
0000000000001040 T b
0000000000001080 T c
`))
	for off := uint64(0x1000); off < 0x1040; off++ {
		require.Equal(t, "a", strings.SplitN(tab.Lookup(off), "+", 2)[0], "off=0x%x", off)
	}
	for off := uint64(0x1040); off < 0x1080; off++ {
		require.Equal(t, "b", strings.SplitN(tab.Lookup(off), "+", 2)[0], "off=0x%x", off)
	}
}

func TestLookupBoundary(t *testing.T) {
	tab := Parse([]byte(`
0000000000001000 T main
0000000000002000 T __libc_csu_init
0000000000003000 T _fini
`))
	// Offsets attributed to linker pseudo-symbols are not real code locations.
	assert.Equal(t, "(unknown @ 0x2100)", tab.Lookup(0x2100))
	assert.Equal(t, "(unknown @ 0x2000)", tab.Lookup(0x2000))
	assert.Equal(t, "(unknown @ 0x3010)", tab.Lookup(0x3010))
	assert.Equal(t, "main+0x10", tab.Lookup(0x1010))
}

func TestLookupEmpty(t *testing.T) {
	tab := Parse(nil)
	assert.Equal(t, 0, tab.Len())
	assert.Equal(t, "0x1234", tab.Lookup(0x1234))
	_, ok := tab.AnchorOffset()
	assert.False(t, ok)
}

func TestDuplicateAddr(t *testing.T) {
	tab := Parse([]byte(`
0000000000001000 T old_alias
0000000000001000 T real_name
`))
	// The later line wins for both exact hits and offsets.
	assert.Equal(t, "real_name", tab.Lookup(0x1000))
	assert.Equal(t, "real_name+0x8", tab.Lookup(0x1008))
}

func TestMissingAnchor(t *testing.T) {
	tab := Parse([]byte("0000000000001000 T main\n"))
	require.Equal(t, 1, tab.Len())
	_, ok := tab.AnchorOffset()
	assert.False(t, ok)
}

func TestAnchorSubstring(t *testing.T) {
	// Demangled dumps publish the handler with its full signature;
	// substring matching must still find it.
	tab := Parse([]byte("0000000000001100 T crash_signal_handler(int)\n"))
	off, ok := tab.AnchorOffset()
	require.True(t, ok)
	assert.Equal(t, uint64(0x1100), off)
}

func TestIsBoundary(t *testing.T) {
	assert.True(t, IsBoundary("_edata"))
	assert.True(t, IsBoundary("completed.0"))
	assert.False(t, IsBoundary("main"))
}

func TestEntries(t *testing.T) {
	tab := Parse([]byte(`
0000000000001000 T main
0000000000001100 T crash_signal_handler
`))
	ents := tab.Entries()
	require.Len(t, ents, 2)
	assert.Equal(t, Entry{Addr: 0x1000, Name: "main"}, ents[0])
	// The copy must not alias table internals.
	ents[0].Name = "mutated"
	assert.Equal(t, "main", tab.Lookup(0x1000))
}

func BenchmarkLookup(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&sb, "%016x T func_%v\n", 0x1000+i*0x40, i)
	}
	tab := Parse([]byte(sb.String()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tab.Lookup(uint64(0x1000 + (i%10000)*0x40 + 7))
	}
}
