// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report renders triage results for terminals and for machines.
// The terminal layout is part of the tool's contract with its users (it
// gets pasted into bug reports), so tests pin it down closely.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixscreen/triage/pkg/backtrace"
	"github.com/helixscreen/triage/pkg/triage"
)

// maxFrames is how many frames of the representative stack the condensed
// view shows before eliding the rest.
const maxFrames = 9

// Text renders the result for a terminal. With detail set, every instance
// of every group is printed with its full backtrace; otherwise each group
// shows its representative stack, condensed.
func Text(res *triage.Result, detail bool) string {
	buf := new(bytes.Buffer)
	sep := strings.Repeat("=", 70)
	fmt.Fprintf(buf, "%v\n", sep)
	fmt.Fprintf(buf, "  HELIXSCREEN CRASH DEBUGGER\n")
	fmt.Fprintf(buf, "%v\n", sep)
	fmt.Fprintf(buf, "  Total crashes: %v\n", res.TotalCrashes)
	fmt.Fprintf(buf, "  Unique signatures: %v\n", res.TotalSignatures)
	if res.Skipped > 0 {
		fmt.Fprintf(buf, "  Skipped (no backtrace): %v\n", res.Skipped)
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(buf, "\n  Warnings:\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(buf, "    ⚠ %v\n", w)
		}
	}
	fmt.Fprintf(buf, "\n")
	for _, group := range res.Groups {
		writeGroup(buf, group, detail)
	}
	if len(res.Groups) == 0 {
		fmt.Fprintf(buf, "  No crashes found matching filters.\n")
	}
	fmt.Fprintf(buf, "%v", sep)
	return buf.String()
}

func writeGroup(buf *bytes.Buffer, group *triage.Group, detail bool) {
	fmt.Fprintf(buf, "  [%v] %vx %v — %v\n", group.Sig, group.Count, group.Signal, group.TopFunc())
	versions := group.Versions.Sorted()
	for i, v := range versions {
		versions[i] = "v" + v
	}
	fmt.Fprintf(buf, "    versions: %v  |  platforms: %v  |  devices: %v\n",
		strings.Join(versions, ", "),
		strings.Join(group.Platforms.Sorted(), ", "),
		len(group.Devices))
	if len(group.Uptimes) > 0 {
		lo, hi := group.Uptimes[0], group.Uptimes[0]
		for _, up := range group.Uptimes[1:] {
			lo, hi = min(lo, up), max(hi, up)
		}
		if lo == hi {
			fmt.Fprintf(buf, "    uptime: %v\n", FormatDuration(lo))
		} else {
			fmt.Fprintf(buf, "    uptime: %v — %v\n", FormatDuration(lo), FormatDuration(hi))
		}
	}
	if group.Shallow {
		fmt.Fprintf(buf, "    ⚠ shallow backtrace (pi32?) — grouping may be unreliable\n")
	}
	if detail {
		for _, inst := range group.Instances {
			fmt.Fprintf(buf, "    ── v%v %v dev=%v uptime=%vs %v\n",
				inst.Version, inst.Platform, inst.Device, inst.Uptime, inst.Timestamp)
			for idx, frame := range inst.Frames {
				writeFrame(buf, frame, idx)
			}
		}
		fmt.Fprintf(buf, "\n")
		return
	}
	for idx, frame := range group.Frames {
		if idx == maxFrames {
			fmt.Fprintf(buf, "       ... +%v more frames\n", len(group.Frames)-maxFrames)
			break
		}
		writeFrame(buf, frame, idx)
	}
	fmt.Fprintf(buf, "\n")
}

func writeFrame(buf *bytes.Buffer, frame backtrace.Frame, index int) {
	marker := " "
	if index == 0 {
		marker = "→"
	}
	fmt.Fprintf(buf, "  %v #%-2d %20v  %v\n", marker, index, frame.HexAddr(), frame.Resolved)
}

// JSON renders the result machine-readable, matching the shape the fleet
// dashboards ingest.
func JSON(res *triage.Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// FormatDuration renders an uptime in its most natural unit.
func FormatDuration(sec float64) string {
	switch {
	case sec < 60:
		return fmt.Sprintf("%.0fs", sec)
	case sec < 3600:
		return fmt.Sprintf("%.1fmin", sec/60)
	default:
		return fmt.Sprintf("%.1fhr", sec/3600)
	}
}
