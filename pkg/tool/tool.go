// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains various helper utilitites useful for implementation of command line tools.
package tool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/helixscreen/triage/pkg/osutil"
)

func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}

// ProjectRoot walks up from dir looking for a repository checkout or build
// root (marked by .git or a Makefile) and returns it. It gives up after a
// bounded number of hops and falls back to dir itself.
func ProjectRoot(dir string) string {
	path := dir
	for i := 0; i < 10; i++ {
		if osutil.IsExist(filepath.Join(path, ".git")) ||
			osutil.IsExist(filepath.Join(path, "Makefile")) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}
	return dir
}

// DefaultDataDir is where the telemetry fetcher drops event files: the
// .telemetry-data/events directory of the enclosing project checkout.
func DefaultDataDir() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(ProjectRoot(wd), ".telemetry-data", "events")
}
