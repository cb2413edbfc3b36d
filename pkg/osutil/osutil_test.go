// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sub", "dir", "file.sym")
	assert.False(t, IsExist(file))
	require.NoError(t, MkdirAll(filepath.Dir(file)))
	require.NoError(t, WriteFile(file, []byte("data")))
	assert.True(t, IsExist(file))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	assert.Equal(t, "/tmp/xdg-cache", CacheDir())
	t.Setenv("XDG_CACHE_HOME", "")
	assert.NotEmpty(t, CacheDir())
}
