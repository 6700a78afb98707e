package analyzer

import (
	"calltree2dot/internal/calltree"
	"calltree2dot/internal/policy"
)

// CallTreeStatistics contains summary statistics about a call-tree export
type CallTreeStatistics struct {
	TotalRows         int
	InterestingRows   int
	IgnoredRows       int
	TotalSamples      int64 // Sum of exclusive samples
	AverageLevel      float64
	MaxLevel          int
	UniqueModules     int
	UniqueFunctions   int
	InterestingShare  float64 // Exclusive samples in watched modules, as a percentage
	LevelDistribution map[int]int
}

// ComputeStatistics calculates statistics for the call tree under the given policy
func ComputeStatistics(entries []*calltree.Entry, p *policy.Policy) CallTreeStatistics {
	stats := CallTreeStatistics{
		TotalRows:         len(entries),
		LevelDistribution: make(map[int]int),
	}

	if stats.TotalRows == 0 {
		return stats
	}

	moduleSet := make(map[string]bool)
	functionSet := make(map[string]bool)
	totalLevel := 0
	var interestingSamples int64

	for _, e := range entries {
		stats.TotalSamples += e.ExclusiveCount
		totalLevel += e.Level
		stats.MaxLevel = max(stats.MaxLevel, e.Level)
		stats.LevelDistribution[e.Level]++

		if p.IsInteresting(e) {
			stats.InterestingRows++
			interestingSamples += e.ExclusiveCount
		}
		if p.ShouldIgnore(e) {
			stats.IgnoredRows++
		}

		if e.Module != "" {
			moduleSet[e.Module] = true
		}
		functionSet[e.Signature()] = true
	}

	stats.AverageLevel = float64(totalLevel) / float64(stats.TotalRows)
	stats.UniqueModules = len(moduleSet)
	stats.UniqueFunctions = len(functionSet)
	if stats.TotalSamples > 0 {
		stats.InterestingShare = float64(interestingSamples) / float64(stats.TotalSamples) * 100.0
	}

	return stats
}
