package analyzer

import (
	"strconv"

	"github.com/MF0323/cransurv/internal/features"
	"github.com/MF0323/cransurv/internal/snapshots"
)

// CrossTab counts survivors and removals per level of one feature.
type CrossTab struct {
	Variable string
	Levels   []string
	Survived []int
	Died     []int
}

// Total returns the number of entries at level i.
func (c CrossTab) Total(i int) int {
	return c.Survived[i] + c.Died[i]
}

// SurvivalRate returns the share of survivors at level i, or 0 for an
// empty level.
func (c CrossTab) SurvivalRate(i int) float64 {
	if c.Total(i) == 0 {
		return 0
	}
	return float64(c.Survived[i]) / float64(c.Total(i))
}

// CrossTabs tabulates Survived against each categorical listing feature.
// Levels with no entries are omitted.
func CrossTabs(ds *Dataset) []CrossTab {
	type variable struct {
		name   string
		levels []string
		value  func(e snapshots.Entry) string
	}

	vars := []variable{
		{"Version", features.VersionBuckets, func(e snapshots.Entry) string { return e.VersionBucket }},
		{"Version (consolidated)", features.ConsolidatedVersionBuckets, func(e snapshots.Entry) string {
			return features.ConsolidatedVersionBucket(e.VersionBucket)
		}},
		{"Depends on versioned package", []string{"FALSE", "TRUE"}, func(e snapshots.Entry) string {
			return boolLevel(e.DependsOnVersionedPkg)
		}},
		{"Dependency count", nil, func(e snapshots.Entry) string { return countLevel(e.DependencyCount) }},
		{"License", ds.Grouper.Levels(), func(e snapshots.Entry) string { return e.LicenseGroup }},
		{"License alternative", []string{"FALSE", "TRUE"}, func(e snapshots.Entry) string {
			return boolLevel(e.LicenseHasAlternative)
		}},
	}

	tabs := make([]CrossTab, 0, len(vars))
	for _, s := range vars {
		levels := s.levels
		if levels == nil {
			levels = countLevels
		}
		index := make(map[string]int, len(levels))
		for i, l := range levels {
			index[l] = i
		}

		surv := make([]int, len(levels))
		died := make([]int, len(levels))
		for _, e := range ds.Entries {
			i, ok := index[s.value(e)]
			if !ok {
				continue
			}
			if e.Survived {
				surv[i]++
			} else {
				died[i]++
			}
		}

		tab := CrossTab{Variable: s.name}
		for i, l := range levels {
			if surv[i]+died[i] == 0 {
				continue
			}
			tab.Levels = append(tab.Levels, l)
			tab.Survived = append(tab.Survived, surv[i])
			tab.Died = append(tab.Died, died[i])
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

var countLevels = []string{"0", "1", "2", "3", "4", "5+"}

func countLevel(n int) string {
	if n >= 5 {
		return "5+"
	}
	return strconv.Itoa(n)
}

func boolLevel(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
