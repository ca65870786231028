package store

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/model"
)

// Helper function to create an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return store
}

func TestNew(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store.db should not be nil")
	}
}

func TestCreateSchema(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	tables := []string{"lifecycle", "listings", "listing_entries", "model_runs", "coefficients"}
	for _, table := range tables {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// idempotent
	if err := store.CreateSchema(); err != nil {
		t.Errorf("second CreateSchema() failed: %v", err)
	}
}

func TestNoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	calls := map[string]func() error{
		"ListLifecycle": func() error { _, err := s.ListLifecycle(); return err },
		"GetListing":    func() error { _, err := s.GetListing("2015"); return err },
		"ListModelRuns": func() error { _, err := s.ListModelRuns(0); return err },
		"GetCounts":     func() error { _, err := s.GetCounts(); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, ErrNotInitialized) {
				t.Errorf("%s() error = %v; want ErrNotInitialized", name, err)
			}
		})
	}
}

func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "cransurv load") {
		t.Errorf("ErrNotInitialized message %q should mention 'cransurv load'", ErrNotInitialized.Error())
	}
}

func TestReplaceAndListLifecycle(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	records := []cran.LifecycleRecord{
		{Pkg: "zoo", CRANDate: cran.MustDate("2019-01-01"), First: cran.MustDate("2004-02-20"), Latest: cran.MustDate("2018-12-01")},
		{Pkg: "abc", CRANDate: cran.Absent(), First: cran.NegInf(), Latest: cran.PosInf()},
	}
	if err := store.ReplaceLifecycle(records); err != nil {
		t.Fatalf("ReplaceLifecycle() failed: %v", err)
	}

	got, err := store.ListLifecycle()
	if err != nil {
		t.Fatalf("ListLifecycle() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0] != records[1] || got[1] != records[0] {
		t.Errorf("ListLifecycle() = %+v, want records ordered by pkg with dates preserved", got)
	}

	// A second replace drops the first set.
	if err := store.ReplaceLifecycle(records[:1]); err != nil {
		t.Fatalf("ReplaceLifecycle() failed: %v", err)
	}
	got, err = store.ListLifecycle()
	if err != nil {
		t.Fatalf("ListLifecycle() failed: %v", err)
	}
	if len(got) != 1 || got[0].Pkg != "zoo" {
		t.Errorf("after replace got %+v, want only zoo", got)
	}
}

func TestGetLifecycle(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	rec := cran.LifecycleRecord{Pkg: "dplyr", CRANDate: cran.MustDate("2020-03-07"), First: cran.MustDate("2014-01-16"), Latest: cran.MustDate("2020-02-01")}
	if err := store.ReplaceLifecycle([]cran.LifecycleRecord{rec}); err != nil {
		t.Fatalf("ReplaceLifecycle() failed: %v", err)
	}

	got, err := store.GetLifecycle("dplyr")
	if err != nil {
		t.Fatalf("GetLifecycle() failed: %v", err)
	}
	if *got != rec {
		t.Errorf("GetLifecycle() = %+v, want %+v", *got, rec)
	}

	if _, err := store.GetLifecycle("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLifecycle(missing) error = %v, want ErrNotFound", err)
	}
}

func testListing(label string, date time.Time) cran.Listing {
	return cran.Listing{
		Label: label,
		Date:  date,
		Entries: []cran.ListingEntry{
			{Package: "b", Version: "1.10", Depends: "R (>= 3.0.0)", License: "MIT + file LICENSE"},
			{Package: "a", Version: "0.1", Depends: "", License: "GPL-2"},
			{Package: "a", Version: "0.2", Depends: "", License: "GPL-3"},
		},
	}
}

func TestReplaceAndGetListing(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	date := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	want := testListing("2015", date)
	if err := store.ReplaceListing(want); err != nil {
		t.Fatalf("ReplaceListing() failed: %v", err)
	}

	got, err := store.GetListing("2015")
	if err != nil {
		t.Fatalf("GetListing() failed: %v", err)
	}
	if !got.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", got.Date, date)
	}
	if len(got.Entries) != len(want.Entries) {
		t.Fatalf("got %d entries, want %d", len(got.Entries), len(want.Entries))
	}
	for i := range want.Entries {
		if got.Entries[i] != want.Entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got.Entries[i], want.Entries[i])
		}
	}

	// Replacing keeps exactly one copy.
	if err := store.ReplaceListing(want); err != nil {
		t.Fatalf("second ReplaceListing() failed: %v", err)
	}
	counts, err := store.GetCounts()
	if err != nil {
		t.Fatalf("GetCounts() failed: %v", err)
	}
	if counts.Listings != 1 || counts.ListingEntries != 3 {
		t.Errorf("counts = %+v, want 1 listing with 3 entries", counts)
	}

	if _, err := store.GetListing("2020"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetListing(2020) error = %v, want ErrNotFound", err)
	}
}

func TestListListingsAndFindEntries(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	later := testListing("2020", time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC))
	later.Entries = later.Entries[:1]
	for _, l := range []cran.Listing{later, testListing("2015", time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC))} {
		if err := store.ReplaceListing(l); err != nil {
			t.Fatalf("ReplaceListing(%s) failed: %v", l.Label, err)
		}
	}

	infos, err := store.ListListings()
	if err != nil {
		t.Fatalf("ListListings() failed: %v", err)
	}
	if len(infos) != 2 || infos[0].Label != "2015" || infos[1].Label != "2020" {
		t.Fatalf("ListListings() = %+v, want 2015 then 2020", infos)
	}
	if infos[0].Entries != 3 || infos[1].Entries != 1 {
		t.Errorf("entry counts = %d, %d; want 3, 1", infos[0].Entries, infos[1].Entries)
	}

	found, err := store.FindEntries("a")
	if err != nil {
		t.Fatalf("FindEntries() failed: %v", err)
	}
	if len(found) != 1 || found["2015"].Version != "0.1" {
		t.Errorf("FindEntries(a) = %+v, want the first 2015 entry only", found)
	}
}

func TestSaveModelRun(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	coefs := []model.Coefficient{
		{Term: "(Intercept)", Estimate: 0.4, StdErr: 0.1, Z: 4, P: 0.0001},
		{Term: "version1", Estimate: -0.2, StdErr: 0.3, Z: -0.67, P: 0.5},
	}
	first := &ModelRun{Model: "survival", N: 100, Events: 40, LogLik: -60.5, LRStat: 3.2, LRDF: 1, LRP: 0.07, Converged: true,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	id, err := store.SaveModelRun(first, coefs)
	if err != nil {
		t.Fatalf("SaveModelRun() failed: %v", err)
	}
	if id == "" || first.ID != id {
		t.Errorf("SaveModelRun() id = %q, run.ID = %q", id, first.ID)
	}

	second := &ModelRun{Model: "period", N: 10, CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	if _, err := store.SaveModelRun(second, nil); err != nil {
		t.Fatalf("SaveModelRun() failed: %v", err)
	}

	runs, err := store.ListModelRuns(0)
	if err != nil {
		t.Fatalf("ListModelRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].Model != "period" || runs[1].Model != "survival" {
		t.Fatalf("ListModelRuns() = %+v, want newest first", runs)
	}
	if !runs[1].CreatedAt.Equal(first.CreatedAt) || runs[1].LogLik != -60.5 || !runs[1].Converged {
		t.Errorf("stored run = %+v, want %+v", *runs[1], *first)
	}

	limited, err := store.ListModelRuns(1)
	if err != nil {
		t.Fatalf("ListModelRuns(1) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListModelRuns(1) returned %d runs", len(limited))
	}

	got, err := store.GetCoefficients(id)
	if err != nil {
		t.Fatalf("GetCoefficients() failed: %v", err)
	}
	if len(got) != 2 || got[0] != coefs[0] || got[1] != coefs[1] {
		t.Errorf("GetCoefficients() = %+v, want %+v", got, coefs)
	}
}

func TestSaveModelRun_AliasedCoefficient(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	nan := math.NaN()
	coefs := []model.Coefficient{
		{Term: "(Intercept)", Estimate: 0.4, StdErr: 0.1, Z: 4, P: 0.0001},
		{Term: "licenseAlternativeTRUE", Estimate: nan, StdErr: nan, Z: nan, P: nan, Aliased: true},
	}
	id, err := store.SaveModelRun(&ModelRun{Model: "survival", N: 10, CreatedAt: time.Now()}, coefs)
	if err != nil {
		t.Fatalf("SaveModelRun() failed: %v", err)
	}

	got, err := store.GetCoefficients(id)
	if err != nil {
		t.Fatalf("GetCoefficients() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d coefficients, want 2", len(got))
	}
	if got[0] != coefs[0] {
		t.Errorf("fitted coefficient = %+v, want %+v", got[0], coefs[0])
	}
	if !got[1].Aliased || got[1].Term != "licenseAlternativeTRUE" || !math.IsNaN(got[1].Estimate) {
		t.Errorf("aliased coefficient = %+v, want NA", got[1])
	}
}
