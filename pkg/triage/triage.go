// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package triage resolves uploaded crash events and folds them into
// signature groups: one group per distinct stack shape, with the devices,
// builds and uptimes it was seen on.
package triage

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/helixscreen/triage/pkg/backtrace"
	"github.com/helixscreen/triage/pkg/platform"
	"github.com/helixscreen/triage/pkg/signature"
	"github.com/helixscreen/triage/pkg/symbol"
	"github.com/helixscreen/triage/pkg/telemetry"
)

// SymbolSource hands out symbol tables per build and accumulates the
// problems it ran into. symstore.Cache is the production implementation;
// tests substitute their own.
type SymbolSource interface {
	// Get returns the table for one build, or nil if none is usable.
	Get(version string, p platform.Platform) *symbol.Table
	// Warnings returns the problems encountered so far.
	Warnings() []string
}

// StringSet collects distinct values and serializes as a sorted list.
type StringSet map[string]bool

func (s StringSet) Add(v string) {
	s[v] = true
}

func (s StringSet) Sorted() []string {
	list := make([]string, 0, len(s))
	for v := range s {
		list = append(list, v)
	}
	sort.Strings(list)
	return list
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// Instance is one concrete crash within a group.
type Instance struct {
	Version   string            `json:"version"`
	Platform  string            `json:"platform"`
	Device    string            `json:"device"`
	Uptime    float64           `json:"uptime"`
	Signal    string            `json:"signal"`
	Timestamp string            `json:"timestamp"`
	Frames    []backtrace.Frame `json:"frames"`
}

// Group aggregates every crash that produced one signature.
type Group struct {
	Sig      string    `json:"sig"`
	Count    int       `json:"count"`
	Signal   string    `json:"signal"`
	Versions StringSet `json:"versions"`
	Devices  StringSet `json:"devices"`
	// Platforms the signature was seen on. More than one usually means a
	// bug in portable code.
	Platforms  StringSet `json:"platforms"`
	Uptimes    []float64 `json:"uptimes"`
	Timestamps []string  `json:"timestamps"`
	// Frames is the representative backtrace: the resolved stack of the
	// first crash that opened the group.
	Frames []backtrace.Frame `json:"frames"`
	// Shallow marks groups whose representative stack has at most two
	// main-binary frames; grouping on so little signal is unreliable.
	Shallow   bool       `json:"shallow"`
	Instances []Instance `json:"instances"`
}

// Result is the output of one analysis run.
type Result struct {
	TotalCrashes    int      `json:"total_crashes"`
	TotalSignatures int      `json:"total_signatures"`
	Skipped         int      `json:"skipped_events"`
	Groups          []*Group `json:"signatures"`
	Warnings        []string `json:"warnings"`
}

// Options adjust what Analyze looks at.
type Options struct {
	// PlatformOverride forces one address-space layout for all crashes
	// instead of per-device detection.
	PlatformOverride platform.Platform
	// VersionFilter keeps only crashes of one build version.
	VersionFilter string
	// SigFilter keeps only groups whose signature starts with the prefix.
	SigFilter string
}

// Analyze resolves and groups the given crashes. The work is a pure
// function of its inputs: the same events in the same order always produce
// identical output, and the per-group counts and sets do not depend on the
// order at all. Analyze runs single-threaded.
func Analyze(crashes []telemetry.CrashEvent, sessions []telemetry.SessionEvent,
	symbols SymbolSource, opts Options) *Result {
	devices := telemetry.DevicePlatforms(sessions)
	if opts.VersionFilter != "" {
		var filtered []telemetry.CrashEvent
		for _, crash := range crashes {
			if crash.AppVersion == opts.VersionFilter {
				filtered = append(filtered, crash)
			}
		}
		crashes = filtered
	}
	res := &Result{
		TotalCrashes: len(crashes),
		Groups:       []*Group{},
		Warnings:     []string{},
	}
	groups := make(map[string]*Group)
	for i := range crashes {
		crash := &crashes[i]
		if len(crash.Backtrace) == 0 {
			// Nothing to group on. Some early firmware versions sent
			// heartbeat crashes with no unwinder output.
			res.Skipped++
			continue
		}
		version := crash.Version()
		p := telemetry.PlatformFor(crash, devices, opts.PlatformOverride)
		tab := symbols.Get(version, p)
		frames := backtrace.Resolve(crash.Backtrace, p, tab)
		sig := signature.Compute(frames)
		if opts.SigFilter != "" && !strings.HasPrefix(sig, opts.SigFilter) {
			continue
		}
		group := groups[sig]
		if group == nil {
			group = &Group{
				Sig:       sig,
				Signal:    crash.Signal(),
				Versions:  StringSet{},
				Devices:   StringSet{},
				Platforms: StringSet{},
				Frames:    frames,
				Shallow:   shallow(frames),
			}
			groups[sig] = group
			res.Groups = append(res.Groups, group)
		}
		group.Count++
		group.Versions.Add(version)
		group.Devices.Add(shortDevice(crash.DeviceID))
		group.Platforms.Add(string(p))
		group.Uptimes = append(group.Uptimes, crash.UptimeSec)
		group.Timestamps = append(group.Timestamps, crash.Timestamp)
		group.Instances = append(group.Instances, Instance{
			Version:   version,
			Platform:  string(p),
			Device:    shortDevice(crash.DeviceID),
			Uptime:    crash.UptimeSec,
			Signal:    crash.Signal(),
			Timestamp: crash.Timestamp,
			Frames:    frames,
		})
	}
	// Busiest groups first; ties keep the order the signatures were first
	// seen in, which is deterministic because events load in sorted file
	// order.
	sort.SliceStable(res.Groups, func(i, j int) bool {
		return res.Groups[i].Count > res.Groups[j].Count
	})
	res.TotalSignatures = len(res.Groups)
	res.Warnings = append(res.Warnings, symbols.Warnings()...)
	return res
}

// TopFunc returns the first meaningful caller of a resolved stack: the
// outermost-entered main-binary symbol below the signal handler. It is what
// reports headline a group with.
func (g *Group) TopFunc() string {
	for i, f := range g.Frames {
		if i == 0 || f.SharedLib {
			continue
		}
		if f.Symbolized() {
			return signature.TrimOffset(f.Resolved)
		}
	}
	return "?"
}

func shallow(frames []backtrace.Frame) bool {
	n := 0
	for _, f := range frames {
		if !f.SharedLib {
			n++
		}
	}
	return n <= 2
}

// Device ids are long stable hashes; reports only ever show a prefix.
func shortDevice(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
