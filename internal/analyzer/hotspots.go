package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"calltree2dot/internal/calltree"
)

// Hotspot represents a function that consumes significant time
type Hotspot struct {
	Function         string
	Module           string
	ExclusiveSamples int64   // Samples taken inside the function itself
	InclusivePeak    float64 // Largest inclusive percentage of any of its frames
	Percentage       float64 // Exclusive samples as a share of all exclusive samples
	Occurrences      int     // Number of call-tree rows for this function
	MinLevel         int     // Shallowest depth the function was seen at
}

// FindHotspots aggregates rows by function and returns them sorted by exclusive samples (descending)
func FindHotspots(entries []*calltree.Entry, topN int) []Hotspot {
	hotspotMap := make(map[string]*Hotspot)
	var totalSamples int64

	for _, e := range entries {
		totalSamples += e.ExclusiveCount

		sig := e.Signature()
		hs, exists := hotspotMap[sig]
		if !exists {
			hs = &Hotspot{
				Function: e.Name,
				Module:   e.Module,
				MinLevel: e.Level,
			}
			hotspotMap[sig] = hs
		}

		hs.ExclusiveSamples += e.ExclusiveCount
		hs.Occurrences++
		hs.InclusivePeak = max(hs.InclusivePeak, e.InclusivePercent)
		hs.MinLevel = min(hs.MinLevel, e.Level)
	}

	hotspots := make([]Hotspot, 0, len(hotspotMap))
	for _, hs := range hotspotMap {
		if totalSamples > 0 {
			hs.Percentage = float64(hs.ExclusiveSamples) / float64(totalSamples) * 100.0
		}
		hotspots = append(hotspots, *hs)
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].ExclusiveSamples != hotspots[j].ExclusiveSamples {
			return hotspots[i].ExclusiveSamples > hotspots[j].ExclusiveSamples
		}
		return hotspots[i].Function < hotspots[j].Function
	})

	if topN > 0 && topN < len(hotspots) {
		return hotspots[:topN]
	}
	return hotspots
}

// ModuleTime is the exclusive sample total of one module
type ModuleTime struct {
	Module     string
	Samples    int64
	Percentage float64
}

// FindModuleHotspots sums exclusive samples per module, sorted descending
func FindModuleHotspots(entries []*calltree.Entry) []ModuleTime {
	moduleSamples := make(map[string]int64)
	var total int64

	for _, e := range entries {
		module := e.Module
		if module == "" {
			module = "[unknown]"
		}
		moduleSamples[module] += e.ExclusiveCount
		total += e.ExclusiveCount
	}

	modules := make([]ModuleTime, 0, len(moduleSamples))
	for module, samples := range moduleSamples {
		mt := ModuleTime{Module: module, Samples: samples}
		if total > 0 {
			mt.Percentage = float64(samples) / float64(total) * 100.0
		}
		modules = append(modules, mt)
	}

	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Samples != modules[j].Samples {
			return modules[i].Samples > modules[j].Samples
		}
		return modules[i].Module < modules[j].Module
	})
	return modules
}

// FormatHotspot returns a human-readable string representation of a hotspot
func FormatHotspot(hs Hotspot, rank int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#%d: %s!%s\n", rank, hs.Module, calltree.DisplayName(hs.Function)))
	sb.WriteString(fmt.Sprintf("    Exclusive samples: %d (%.2f%%)\n", hs.ExclusiveSamples, hs.Percentage))
	sb.WriteString(fmt.Sprintf("    Peak inclusive: %.2f%%\n", hs.InclusivePeak))
	sb.WriteString(fmt.Sprintf("    Rows: %d, shallowest level: %d\n", hs.Occurrences, hs.MinLevel))

	return sb.String()
}
