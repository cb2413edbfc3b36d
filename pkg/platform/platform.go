// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package platform describes the address-space layout of the device images
// that upload crash telemetry. The layout decides which backtrace addresses
// can belong to the main binary (and are therefore resolvable against its
// symbol table) and which must come from shared library mappings.
package platform

// Platform identifies one device image flavor.
type Platform string

const (
	// Pi is the 64-bit Raspberry Pi image (aarch64, PIE binary).
	Pi Platform = "pi"
	// Pi32 is the 32-bit armhf image.
	Pi32 Platform = "pi32"
)

// Normalize folds the platform aliases that older builds report.
func Normalize(name string) Platform {
	switch name {
	case "rpi4_64bit":
		return Pi
	default:
		return Platform(name)
	}
}

type layout struct {
	// sharedLib reports whether an address can only come from a shared
	// library mapping rather than the main binary image.
	sharedLib func(addr uint64) bool
}

var layouts = map[Platform]layout{
	Pi: {
		// On aarch64 the PIE binary is mapped around 0x0000aaaa_xxxxxxxx
		// and shared libraries around 0x0000ffff_xxxxxxxx.
		sharedLib: func(addr uint64) bool {
			return (addr>>32)&0xffff >= 0xffff
		},
	},
	Pi32: {
		// On armhf the dynamic loader places libraries in the top of the
		// 32-bit address space.
		sharedLib: func(addr uint64) bool {
			return addr >= 0xf0000000
		},
	},
}

// SharedLibAddr reports whether addr belongs to a shared library mapping on
// the given platform. Unknown platforms claim every address for the main
// binary so that symbol resolution is still attempted.
func SharedLibAddr(addr uint64, platform Platform) bool {
	l, ok := layouts[platform]
	if !ok {
		return false
	}
	return l.sharedLib(addr)
}

// DetectFromAddrs guesses the platform from raw backtrace addresses when no
// session metadata exists for the device. Anything that does not fit in 32
// bits can only come from the 64-bit image.
func DetectFromAddrs(addrs []uint64) Platform {
	for _, addr := range addrs {
		if addr > 0xffffffff {
			return Pi
		}
	}
	return Pi32
}
