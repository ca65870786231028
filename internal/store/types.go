package store

import (
	"errors"
	"time"
)

// ErrNotInitialized is returned when a query runs before the schema exists.
var ErrNotInitialized = errors.New("database not initialized: run 'cransurv load' first")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ListingInfo summarizes a stored listing.
type ListingInfo struct {
	Label    string
	Date     time.Time
	Entries  int
	LoadedAt time.Time
}

// ModelRun is one persisted model fit.
type ModelRun struct {
	ID        string
	CreatedAt time.Time
	Model     string // "period", "survival", "subsequent"
	N         int
	Events    int
	LogLik    float64
	LRStat    float64
	LRDF      int
	LRP       float64
	Converged bool
}

// Counts holds the row counts reported by status and doctor.
type Counts struct {
	Lifecycle      int
	Listings       int
	ListingEntries int
	ModelRuns      int
}
