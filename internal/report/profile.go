// Package report turns stored energy series into profiled, uploaded HTML
// reports. A request is extracted, merged into one wide frame, enriched with
// derived features, profiled, uploaded and recorded, while a Generation Log
// tracks its progress.
package report

import (
	"errors"
	"fmt"
	"strings"

	"gridetl/internal/features"
	"gridetl/internal/report/profiling"
)

// Profile selects how much analysis a report contains.
type Profile string

const (
	Minimal     Profile = "minimal"
	Full        Profile = "full"
	Explorative Profile = "explorative"
)

// ErrUnknownProfile is returned by ParseProfile.
var ErrUnknownProfile = errors.New("report: unknown profile")

// Profiles lists the accepted values in display order.
var Profiles = []Profile{Minimal, Full, Explorative}

// ParseProfile accepts "minimal", "full" or "explorative" in any case. An
// empty string selects Minimal.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Minimal, nil
	}
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q (want minimal, full or explorative)", ErrUnknownProfile, s)
}

var settings = map[Profile]profiling.Settings{
	Minimal: {
		Title:        "Energy Data Profile - Minimal",
		Correlations: true,
		MissingBar:   true,
		SampleHead:   5,
		SampleTail:   5,
	},
	Full: {
		Title:          "Energy Data Profile - Complete Analysis",
		Explorative:    true,
		Correlations:   true,
		MissingBar:     true,
		MissingMatrix:  true,
		MissingHeatmap: true,
		DuplicatesHead: 10,
		SampleHead:     10,
		SampleTail:     10,
	},
	Explorative: {
		Title:              "Energy Data Profile - Explorative",
		Explorative:        true,
		Correlations:       true,
		InteractionTargets: []string{features.ActualLoad, "temperature_celsius"},
		MissingBar:         true,
		MissingMatrix:      true,
		MissingHeatmap:     true,
		DuplicatesHead:     10,
		SampleHead:         10,
		SampleTail:         10,
	},
}

// Settings returns the profiler settings of p. Unknown values get the
// minimal settings.
func (p Profile) Settings() profiling.Settings {
	s, ok := settings[p]
	if !ok {
		s = settings[Minimal]
	}
	s.InteractionTargets = append([]string(nil), s.InteractionTargets...)
	return s
}
