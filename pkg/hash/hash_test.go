// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShort(t *testing.T) {
	sig := Hash([]byte("crash_signal_handler\nfoo+0x10\nbar"))
	short := sig.Short()
	assert.Len(t, short, ShortLen)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), short)
	// Truncation must be a prefix of the full digest.
	assert.Equal(t, sig.String()[:ShortLen], short)
}

func TestDeterminism(t *testing.T) {
	a := Hash([]byte("foo"), []byte("bar"))
	b := Hash([]byte("foo"), []byte("bar"))
	assert.Equal(t, a, b)
	c := Hash([]byte("foo"), []byte("baz"))
	assert.NotEqual(t, a, c)
}

func TestFromString(t *testing.T) {
	sig := Hash([]byte("some data"))
	back, err := FromString(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, back)
	_, err = FromString("zz")
	assert.Error(t, err)
	_, err = FromString("abcd")
	assert.Error(t, err)
}
