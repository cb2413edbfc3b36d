// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/helixscreen/triage/pkg/log"
	"github.com/helixscreen/triage/pkg/osutil"
	"github.com/helixscreen/triage/pkg/platform"
	"github.com/helixscreen/triage/pkg/symbol"
)

// DefaultDir returns the on-disk location for downloaded symbol dumps.
func DefaultDir() string {
	return filepath.Join(osutil.CacheDir(), "helixscreen", "symbols")
}

// BuildKey identifies one symbol dump: a build version on a platform.
type BuildKey struct {
	Version  string
	Platform platform.Platform
}

func (key BuildKey) String() string {
	return fmt.Sprintf("v%v/%v", key.Version, key.Platform)
}

// Cache hands out parsed symbol tables, downloading and persisting the
// dumps on first use. A missing or unusable dump is remembered for the rest
// of the run and surfaces exactly one warning; triage then proceeds in
// degraded mode for the affected builds.
//
// Cache is not safe for concurrent use. Analysis runs single-threaded;
// Prefetch only overlaps the network wait, never the cache state.
type Cache struct {
	store    *Store
	dir      string
	tables   map[BuildKey]*symbol.Table // nil value records a known-bad dump
	warnings []string
}

// NewCache creates a symbol cache backed by store, keeping files under dir.
// An empty dir selects DefaultDir.
func NewCache(store *Store, dir string) *Cache {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Cache{
		store:  store,
		dir:    dir,
		tables: make(map[BuildKey]*symbol.Table),
	}
}

// Get returns the symbol table for one build, or nil if its dump is missing
// or unusable. Every failure mode degrades: the caller is expected to keep
// going without symbols.
func (c *Cache) Get(version string, p platform.Platform) *symbol.Table {
	key := BuildKey{version, p}
	if tab, ok := c.tables[key]; ok {
		return tab
	}
	tab := c.fetch(key)
	c.tables[key] = tab
	return tab
}

// Warnings returns the problems encountered so far, one line per affected
// build, in the order they were discovered.
func (c *Cache) Warnings() []string {
	return c.warnings
}

func (c *Cache) fetch(key BuildKey) *symbol.Table {
	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		data, err = c.download(key)
		if err != nil {
			c.warnf(key, "%v", err)
			return nil
		}
	}
	if len(data) == 0 {
		c.warnf(key, "symbol file is empty (broken upload?)")
		return nil
	}
	tab := symbol.Parse(data)
	if tab.Len() == 0 {
		c.warnf(key, "no text symbols found in .sym file")
		return nil
	}
	if _, ok := tab.AnchorOffset(); !ok {
		// Still usable for plain lookups, but ASLR reversal is off.
		c.warnf(key, "%v not found in symbols", symbol.AnchorSymbol)
	}
	return tab
}

// download fetches one dump and persists it. A failure to persist is not a
// failure to download: the bytes still serve the current run.
func (c *Cache) download(key BuildKey) ([]byte, error) {
	log.Logf(0, "downloading symbols for %v...", key)
	data, err := c.store.Fetch(key.Version, key.Platform)
	if err != nil {
		return nil, err
	}
	path := c.filePath(key)
	if err := osutil.MkdirAll(filepath.Dir(path)); err != nil {
		log.Logf(1, "failed to create symbol cache dir: %v", err)
		return data, nil
	}
	// Concurrent triage runs may race on the same dump; write to a unique
	// temp name and rename over.
	tmp := filepath.Join(filepath.Dir(path), uuid.NewString()+".tmp")
	if err := osutil.WriteFile(tmp, data); err != nil {
		log.Logf(1, "failed to cache symbols at %v: %v", tmp, err)
		return data, nil
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		log.Logf(1, "failed to cache symbols at %v: %v", path, err)
	}
	return data, nil
}

func (c *Cache) filePath(key BuildKey) string {
	return filepath.Join(c.dir, fmt.Sprintf("v%v", key.Version), string(key.Platform)+".sym")
}

func (c *Cache) warnf(key BuildKey, msg string, args ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf("%v: %v", key, fmt.Sprintf(msg, args...)))
}

// Prefetch downloads the dumps for the given builds with up to parallel
// connections. It only populates the on-disk cache: table parsing, warning
// bookkeeping and failure memoization all stay with the serial Get calls,
// so Prefetch touches no shared state. Failed downloads are retried by Get
// once, which is what attributes the warning.
func (c *Cache) Prefetch(keys []BuildKey, parallel int) {
	if parallel < 1 {
		parallel = 1
	}
	var g errgroup.Group
	g.SetLimit(parallel)
	for _, key := range keys {
		key := key
		if osutil.IsExist(c.filePath(key)) {
			continue
		}
		g.Go(func() error {
			c.download(key)
			return nil
		})
	}
	g.Wait()
}
