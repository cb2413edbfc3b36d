// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// helix-triage resolves the ASLR-randomized backtraces in uploaded crash
// telemetry, groups the crashes by stack signature and prints a
// per-signature summary.
//
// Typical usage:
//
//	helix-triage -since 2026-02-09              crashes of the last days
//	helix-triage -version 0.9.12 -detail        one build, full backtraces
//	helix-triage -sig a3f82b1c -detail          zoom into one signature
//	helix-triage -json                          machine-readable output
//
// Symbol files are fetched from the release store on first use and cached
// under the user cache directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/helixscreen/triage/pkg/config"
	"github.com/helixscreen/triage/pkg/log"
	"github.com/helixscreen/triage/pkg/platform"
	"github.com/helixscreen/triage/pkg/report"
	"github.com/helixscreen/triage/pkg/symstore"
	"github.com/helixscreen/triage/pkg/telemetry"
	"github.com/helixscreen/triage/pkg/tool"
	"github.com/helixscreen/triage/pkg/triage"
)

var (
	flagConfig   = flag.String("config", "", "configuration file (optional)")
	flagDataDir  = flag.String("data-dir", "", "telemetry events directory")
	flagSince    = flag.String("since", "", "include crashes on or after this date (YYYY-MM-DD)")
	flagUntil    = flag.String("until", "", "include crashes on or before this date (YYYY-MM-DD)")
	flagVersion  = flag.String("version", "", "filter to one app version (e.g. 0.9.12)")
	flagPlatform = flag.String("platform", "", "override platform detection (pi, pi32)")
	flagSig      = flag.String("sig", "", "show only signatures with this prefix")
	flagDetail   = flag.Bool("detail", false, "show full resolved backtraces per instance")
	flagJSON     = flag.Bool("json", false, "machine-readable JSON output")
	flagStore    = flag.String("store", "", "symbol store base URL")
	flagCacheDir = flag.String("cache-dir", "", "symbol cache directory")
	flagParallel = flag.Int("parallel", 4, "parallel symbol downloads")
)

func main() {
	flag.Parse()
	cfg := &config.Config{}
	if *flagConfig != "" {
		var err error
		if cfg, err = config.LoadFile(*flagConfig); err != nil {
			tool.Fail(err)
		}
	}
	dataDir := pick(*flagDataDir, cfg.DataDir, tool.DefaultDataDir())
	since, until := parseWindow()

	crashes, sessions, err := telemetry.Load(dataDir, since, until)
	if err != nil {
		log.Logf(0, "%v", err)
	}
	if len(crashes) == 0 {
		fmt.Fprintln(os.Stderr, "No crashes found.")
		return
	}

	override := platform.Normalize(pick(*flagPlatform, cfg.Platform, ""))
	opts := triage.Options{
		PlatformOverride: override,
		VersionFilter:    *flagVersion,
		SigFilter:        *flagSig,
	}
	store := symstore.NewStore(pick(*flagStore, cfg.StoreURL, symstore.BaseURL()))
	cache := symstore.NewCache(store, pick(*flagCacheDir, cfg.CacheDir, ""))
	cache.Prefetch(buildKeys(crashes, sessions, override), *flagParallel)

	res := triage.Analyze(crashes, sessions, cache, opts)
	if *flagJSON {
		data, err := report.JSON(res)
		if err != nil {
			tool.Failf("failed to serialize result: %v", err)
		}
		fmt.Printf("%s\n", data)
		return
	}
	fmt.Println(report.Text(res, *flagDetail))
}

// pick returns the first non-empty choice: explicit flag, then config file,
// then built-in default.
func pick(choices ...string) string {
	for _, c := range choices {
		if c != "" {
			return c
		}
	}
	return ""
}

func parseWindow() (since, until time.Time) {
	var err error
	if *flagSince != "" {
		if since, err = telemetry.ParseDay(*flagSince); err != nil {
			tool.Fail(err)
		}
	}
	if *flagUntil != "" {
		if until, err = telemetry.ParseDay(*flagUntil); err != nil {
			tool.Fail(err)
		}
		until = telemetry.DayEnd(until)
	}
	return since, until
}

// buildKeys lists the distinct build/platform pairs the crashes will ask
// symbols for, so the cache can warm up in parallel before the serial
// analysis pass.
func buildKeys(crashes []telemetry.CrashEvent, sessions []telemetry.SessionEvent,
	override platform.Platform) []symstore.BuildKey {
	devices := telemetry.DevicePlatforms(sessions)
	seen := make(map[symstore.BuildKey]bool)
	var keys []symstore.BuildKey
	for i := range crashes {
		crash := &crashes[i]
		if len(crash.Backtrace) == 0 {
			continue
		}
		if *flagVersion != "" && crash.AppVersion != *flagVersion {
			continue
		}
		key := symstore.BuildKey{
			Version:  crash.Version(),
			Platform: telemetry.PlatformFor(crash, devices, override),
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}
