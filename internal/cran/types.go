// Package cran defines the raw CRAN records the pipeline consumes and
// loads them from tabular input files.
package cran

import "time"

// LifecycleRecord is one package's lifecycle dates as loaded from the
// archive dataset. CRANDate is absent when the package is no longer live.
type LifecycleRecord struct {
	Pkg      string
	CRANDate Date // date of the current CRAN release, absent if removed
	First    Date // oldest archived version
	Latest   Date // most recent archived version
}

// ListingEntry is one row of a point-in-time package listing.
type ListingEntry struct {
	Package string
	Version string
	Depends string // e.g. "R (>= 3.0.0), methods, utils"
	License string
}

// Listing is a package index captured on a fixed date.
type Listing struct {
	Label   string // "2015", "2020"
	Date    time.Time
	Entries []ListingEntry
}

// Keys returns the set of package names in the listing.
func (l Listing) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(l.Entries))
	for _, e := range l.Entries {
		keys[e.Package] = struct{}{}
	}
	return keys
}
