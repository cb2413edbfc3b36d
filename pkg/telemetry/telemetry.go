// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package telemetry loads the JSON event files that devices upload. Files
// arrive either as a single event object or as an array of events; crash and
// session events are told apart by the "event" field. The loader is lenient:
// unreadable files and unrecognized events are skipped, a crash dump that
// made it to disk should never be lost to a neighbor's formatting bug.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/helixscreen/triage/pkg/backtrace"
	"github.com/helixscreen/triage/pkg/log"
	"github.com/helixscreen/triage/pkg/osutil"
	"github.com/helixscreen/triage/pkg/platform"
)

// CrashEvent is one uploaded crash report.
type CrashEvent struct {
	Event       string   `json:"event"`
	DeviceID    string   `json:"device_id"`
	AppVersion  string   `json:"app_version"`
	AppPlatform string   `json:"app_platform,omitempty"`
	SignalName  string   `json:"signal_name"`
	Timestamp   string   `json:"timestamp"`
	UptimeSec   float64  `json:"uptime_sec"`
	Backtrace   []string `json:"backtrace"`
}

// Version returns the build version the crash reports, or "unknown" for
// events predating the version field.
func (ev *CrashEvent) Version() string {
	if ev.AppVersion == "" {
		return "unknown"
	}
	return ev.AppVersion
}

// Signal returns the fatal signal name, or "?" when the report lacks one.
func (ev *CrashEvent) Signal() string {
	if ev.SignalName == "" {
		return "?"
	}
	return ev.SignalName
}

// SessionEvent is one app startup record. Only the fields the triage needs
// are decoded.
type SessionEvent struct {
	Event     string `json:"event"`
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	App       struct {
		Platform string `json:"platform"`
	} `json:"app"`
}

// envelope is the common prefix of every event, used to dispatch and filter
// before committing to a full decode.
type envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

// Load reads all *.json files under dir (recursively, in sorted order) and
// returns the crash and session events they contain. since/until bound the
// event timestamps; zero times mean unbounded. Events without a parsable
// timestamp always pass the filter.
func Load(dir string, since, until time.Time) ([]CrashEvent, []SessionEvent, error) {
	if !osutil.IsExist(dir) {
		return nil, nil, fmt.Errorf("data directory not found: %v", dir)
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %v: %w", dir, err)
	}
	sort.Strings(files)
	var crashes []CrashEvent
	var sessions []SessionEvent
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Logf(1, "skipping %v: %v", file, err)
			continue
		}
		for _, raw := range splitEvents(data) {
			var env envelope
			if json.Unmarshal(raw, &env) != nil {
				continue
			}
			if !inWindow(env.Timestamp, since, until) {
				continue
			}
			switch env.Event {
			case "crash":
				var ev CrashEvent
				if err := json.Unmarshal(raw, &ev); err != nil {
					log.Logf(1, "skipping crash event in %v: %v", file, err)
					continue
				}
				crashes = append(crashes, ev)
			case "session":
				var ev SessionEvent
				if err := json.Unmarshal(raw, &ev); err != nil {
					log.Logf(1, "skipping session event in %v: %v", file, err)
					continue
				}
				sessions = append(sessions, ev)
			}
		}
	}
	log.Logf(0, "loaded %v crashes, %v sessions from %v files", len(crashes), len(sessions), len(files))
	return crashes, sessions, nil
}

// splitEvents returns the individual event objects of one file, which holds
// either a single object or an array of objects.
func splitEvents(data []byte) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	var single json.RawMessage
	if err := json.Unmarshal(data, &single); err == nil && len(single) > 0 && single[0] == '{' {
		return []json.RawMessage{single}
	}
	return nil
}

func inWindow(ts string, since, until time.Time) bool {
	if ts == "" || (since.IsZero() && until.IsZero()) {
		return true
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		// Unparsable timestamps pass through, same as events without one.
		return true
	}
	if !since.IsZero() && t.Before(since) {
		return false
	}
	if !until.IsZero() && t.After(until) {
		return false
	}
	return true
}

// ParseDay parses a YYYY-MM-DD filter argument as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q (want YYYY-MM-DD): %v", s, err)
	}
	return t, nil
}

// DayEnd moves a midnight bound to the end of the same day so that an
// -until filter includes the whole day it names.
func DayEnd(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Second)
}

// DevicePlatforms maps device ids to platforms using session events. Later
// sessions win, so a reflashed device counts under its newest image.
func DevicePlatforms(sessions []SessionEvent) map[string]platform.Platform {
	devices := make(map[string]platform.Platform)
	for _, s := range sessions {
		if s.DeviceID == "" || s.App.Platform == "" {
			continue
		}
		devices[s.DeviceID] = platform.Normalize(s.App.Platform)
	}
	return devices
}

// PlatformFor decides which address-space layout applies to a crash:
// explicit override first, then session metadata for the device, then the
// platform the crash itself reported, and as a last resort a guess from the
// address values.
func PlatformFor(crash *CrashEvent, devices map[string]platform.Platform, override platform.Platform) platform.Platform {
	if override != "" {
		return override
	}
	if p, ok := devices[crash.DeviceID]; ok {
		return p
	}
	if crash.AppPlatform != "" {
		return platform.Normalize(crash.AppPlatform)
	}
	return platform.DetectFromAddrs(backtrace.ParseAddrs(crash.Backtrace))
}
