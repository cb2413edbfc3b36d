// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedLibAddr(t *testing.T) {
	tests := []struct {
		name     string
		addr     uint64
		platform Platform
		want     bool
	}{
		{"pi main binary", 0xaaaae52c1100, Pi, false},
		{"pi shared lib", 0xffffa1b2c3d4, Pi, true},
		{"pi heap below lib range", 0xaaab00001000, Pi, false},
		{"pi 32-bit addr", 0x12345678, Pi, false},
		{"pi32 main binary", 0x00411000, Pi32, false},
		{"pi32 shared lib", 0xf7a01234, Pi32, true},
		{"pi32 lib range start", 0xf0000000, Pi32, true},
		{"pi32 just below lib range", 0xefffffff, Pi32, false},
		{"unknown platform high addr", 0xffffa1b2c3d4, Platform("riscv"), false},
		{"unknown platform low addr", 0x1000, Platform(""), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, SharedLibAddr(test.addr, test.platform))
		})
	}
}

func TestDetectFromAddrs(t *testing.T) {
	tests := []struct {
		name  string
		addrs []uint64
		want  Platform
	}{
		{"64-bit addresses", []uint64{0xaaaae52c1100, 0xaaaae52c1060}, Pi},
		{"single wide address", []uint64{0x411000, 0xffffa1b2c3d4}, Pi},
		{"all 32-bit", []uint64{0x411000, 0xf7a01234}, Pi32},
		{"boundary value keeps pi32", []uint64{0xffffffff}, Pi32},
		{"empty trace", nil, Pi32},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, DetectFromAddrs(test.addrs))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Pi, Normalize("rpi4_64bit"))
	assert.Equal(t, Pi, Normalize("pi"))
	assert.Equal(t, Pi32, Normalize("pi32"))
	assert.Equal(t, Platform("ad5m"), Normalize("ad5m"))
}
