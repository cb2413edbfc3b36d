// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type Sig [sha256.Size]byte

// ShortLen is the number of leading hex digits that identify a crash
// signature in reports and filters.
const ShortLen = 8

func Hash(pieces ...[]byte) Sig {
	h := sha256.New()
	for _, data := range pieces {
		h.Write(data)
	}
	var sig Sig
	copy(sig[:], h.Sum(nil))
	return sig
}

func String(pieces ...[]byte) string {
	sig := Hash(pieces...)
	return sig.String()
}

func (sig *Sig) String() string {
	return hex.EncodeToString((*sig)[:])
}

// Short returns the truncated form of the hash used as a grouping key.
func (sig *Sig) Short() string {
	return sig.String()[:ShortLen]
}

func FromString(str string) (Sig, error) {
	bin, err := hex.DecodeString(str)
	if err != nil {
		return Sig{}, fmt.Errorf("failed to decode sig '%v': %v", str, err)
	}
	if len(bin) != len(Sig{}) {
		return Sig{}, fmt.Errorf("failed to decode sig '%v': bad len", str)
	}
	var sig Sig
	copy(sig[:], bin)
	return sig, nil
}
