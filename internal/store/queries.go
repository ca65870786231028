package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/model"
)

// timeLayout sorts lexically in creation order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Lifecycle operations

// ReplaceLifecycle swaps the stored lifecycle table for records in a single
// transaction.
func (s *Store) ReplaceLifecycle(records []cran.LifecycleRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lifecycle`); err != nil {
		return wrap("failed to clear lifecycle", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO lifecycle (pkg, cran_date, first, latest)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return wrap("failed to prepare lifecycle insert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Pkg, r.CRANDate.String(), r.First.String(), r.Latest.String()); err != nil {
			return fmt.Errorf("failed to insert lifecycle %s: %w", r.Pkg, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lifecycle: %w", err)
	}
	return nil
}

// ListLifecycle returns every stored lifecycle record ordered by package.
func (s *Store) ListLifecycle() ([]cran.LifecycleRecord, error) {
	rows, err := s.db.Query(`
		SELECT pkg, cran_date, first, latest
		FROM lifecycle
		ORDER BY pkg
	`)
	if err != nil {
		return nil, wrap("failed to list lifecycle", err)
	}
	defer rows.Close()

	var records []cran.LifecycleRecord
	for rows.Next() {
		r, err := scanLifecycle(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lifecycle: %w", err)
	}
	return records, nil
}

// GetLifecycle returns the lifecycle record of one package.
func (s *Store) GetLifecycle(pkg string) (*cran.LifecycleRecord, error) {
	row := s.db.QueryRow(`
		SELECT pkg, cran_date, first, latest
		FROM lifecycle
		WHERE pkg = ?
	`, pkg)

	r, err := scanLifecycle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lifecycle for %s: %w", pkg, ErrNotFound)
	}
	if err != nil {
		return nil, wrap("failed to get lifecycle for "+pkg, err)
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLifecycle(sc scanner) (cran.LifecycleRecord, error) {
	var r cran.LifecycleRecord
	var cranDate, first, latest sql.NullString
	if err := sc.Scan(&r.Pkg, &cranDate, &first, &latest); err != nil {
		return r, err
	}

	var err error
	if r.CRANDate, err = cran.ParseDate(cranDate.String); err != nil {
		return r, fmt.Errorf("failed to parse cran_date for %s: %w", r.Pkg, err)
	}
	if r.First, err = cran.ParseDate(first.String); err != nil {
		return r, fmt.Errorf("failed to parse first for %s: %w", r.Pkg, err)
	}
	if r.Latest, err = cran.ParseDate(latest.String); err != nil {
		return r, fmt.Errorf("failed to parse latest for %s: %w", r.Pkg, err)
	}
	return r, nil
}

// Listing operations

// ReplaceListing stores l under its label, replacing any previous listing
// with that label.
func (s *Store) ReplaceListing(l cran.Listing) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM listings WHERE label = ?`, l.Label); err != nil {
		return wrap("failed to clear listing "+l.Label, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO listings (label, listing_date, loaded_at)
		VALUES (?, ?, ?)
	`, l.Label, l.Date.Format(cran.DateLayout), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to insert listing %s: %w", l.Label, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO listing_entries (label, position, package, version, depends, license)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare listing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range l.Entries {
		if _, err := stmt.Exec(l.Label, i, e.Package, e.Version, e.Depends, e.License); err != nil {
			return fmt.Errorf("failed to insert %s into listing %s: %w", e.Package, l.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listing %s: %w", l.Label, err)
	}
	return nil
}

// GetListing returns the listing stored under label with entries in their
// original order.
func (s *Store) GetListing(label string) (cran.Listing, error) {
	l := cran.Listing{Label: label}

	var date string
	err := s.db.QueryRow(`SELECT listing_date FROM listings WHERE label = ?`, label).Scan(&date)
	if err == sql.ErrNoRows {
		return l, fmt.Errorf("listing %s: %w", label, ErrNotFound)
	}
	if err != nil {
		return l, wrap("failed to get listing "+label, err)
	}
	if l.Date, err = time.Parse(cran.DateLayout, date); err != nil {
		return l, fmt.Errorf("failed to parse date of listing %s: %w", label, err)
	}

	rows, err := s.db.Query(`
		SELECT package, version, depends, license
		FROM listing_entries
		WHERE label = ?
		ORDER BY position
	`, label)
	if err != nil {
		return l, wrap("failed to get entries of listing "+label, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e cran.ListingEntry
		var version, depends, license sql.NullString
		if err := rows.Scan(&e.Package, &version, &depends, &license); err != nil {
			return l, fmt.Errorf("failed to scan listing entry: %w", err)
		}
		e.Version, e.Depends, e.License = version.String, depends.String, license.String
		l.Entries = append(l.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return l, fmt.Errorf("error iterating listing %s: %w", label, err)
	}
	return l, nil
}

// ListListings returns a summary of each stored listing ordered by date.
func (s *Store) ListListings() ([]ListingInfo, error) {
	rows, err := s.db.Query(`
		SELECT l.label, l.listing_date, l.loaded_at, COUNT(e.package)
		FROM listings l
		LEFT JOIN listing_entries e ON e.label = l.label
		GROUP BY l.label
		ORDER BY l.listing_date
	`)
	if err != nil {
		return nil, wrap("failed to list listings", err)
	}
	defer rows.Close()

	var out []ListingInfo
	for rows.Next() {
		var info ListingInfo
		var date, loaded string
		if err := rows.Scan(&info.Label, &date, &loaded, &info.Entries); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		if info.Date, err = time.Parse(cran.DateLayout, date); err != nil {
			return nil, fmt.Errorf("failed to parse listing date %q: %w", date, err)
		}
		if info.LoadedAt, err = time.Parse(time.RFC3339, loaded); err != nil {
			return nil, fmt.Errorf("failed to parse loaded_at %q: %w", loaded, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}
	return out, nil
}

// FindEntries returns the entry for pkg in every stored listing, keyed by
// listing label. Only the first occurrence within a listing is returned.
func (s *Store) FindEntries(pkg string) (map[string]cran.ListingEntry, error) {
	rows, err := s.db.Query(`
		SELECT label, package, version, depends, license
		FROM listing_entries
		WHERE package = ?
		ORDER BY label, position
	`, pkg)
	if err != nil {
		return nil, wrap("failed to find "+pkg, err)
	}
	defer rows.Close()

	out := make(map[string]cran.ListingEntry)
	for rows.Next() {
		var label string
		var e cran.ListingEntry
		var version, depends, license sql.NullString
		if err := rows.Scan(&label, &e.Package, &version, &depends, &license); err != nil {
			return nil, fmt.Errorf("failed to scan listing entry: %w", err)
		}
		if _, seen := out[label]; seen {
			continue
		}
		e.Version, e.Depends, e.License = version.String, depends.String, license.String
		out[label] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries of %s: %w", pkg, err)
	}
	return out, nil
}

// Model run operations

// SaveModelRun stores a fit and its coefficient table. A run without an ID
// gets a new UUID; the assigned ID is returned.
func (s *Store) SaveModelRun(run *ModelRun, coefs []model.Coefficient) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO model_runs (id, created_at, model, n, events, loglik, lr_stat, lr_df, lr_p, converged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Model,
		run.N,
		run.Events,
		run.LogLik,
		run.LRStat,
		run.LRDF,
		run.LRP,
		run.Converged,
	)
	if err != nil {
		return "", wrap("failed to insert model run", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO coefficients (run_id, position, term, estimate, std_err, z, p)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare coefficient insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range coefs {
		// aliased terms are stored as NULL
		var est, se, z, pv any
		if !c.Aliased {
			est, se, z, pv = c.Estimate, c.StdErr, c.Z, c.P
		}
		if _, err := stmt.Exec(run.ID, i, c.Term, est, se, z, pv); err != nil {
			return "", fmt.Errorf("failed to insert coefficient %s: %w", c.Term, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit model run: %w", err)
	}
	return run.ID, nil
}

// ListModelRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListModelRuns(limit int) ([]*ModelRun, error) {
	query := `
		SELECT id, created_at, model, n, events, loglik, lr_stat, lr_df, lr_p, converged
		FROM model_runs
		ORDER BY created_at DESC, id
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrap("failed to list model runs", err)
	}
	defer rows.Close()

	var runs []*ModelRun
	for rows.Next() {
		var r ModelRun
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Model, &r.N, &r.Events, &r.LogLik, &r.LRStat, &r.LRDF, &r.LRP, &r.Converged); err != nil {
			return nil, fmt.Errorf("failed to scan model run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", created, err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model runs: %w", err)
	}
	return runs, nil
}

// GetCoefficients returns the coefficient table of a run in fit order.
func (s *Store) GetCoefficients(runID string) ([]model.Coefficient, error) {
	rows, err := s.db.Query(`
		SELECT term, estimate, std_err, z, p
		FROM coefficients
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, wrap("failed to get coefficients for run "+runID, err)
	}
	defer rows.Close()

	var out []model.Coefficient
	for rows.Next() {
		var term string
		var est, se, z, pv sql.NullFloat64
		if err := rows.Scan(&term, &est, &se, &z, &pv); err != nil {
			return nil, fmt.Errorf("failed to scan coefficient: %w", err)
		}
		if !est.Valid {
			out = append(out, model.Coefficient{
				Term: term, Aliased: true,
				Estimate: math.NaN(), StdErr: math.NaN(), Z: math.NaN(), P: math.NaN(),
			})
			continue
		}
		out = append(out, model.Coefficient{Term: term, Estimate: est.Float64, StdErr: se.Float64, Z: z.Float64, P: pv.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coefficients: %w", err)
	}
	return out, nil
}

// Statistics

// GetCounts returns the row count of each table.
func (s *Store) GetCounts() (Counts, error) {
	var c Counts
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM lifecycle),
			(SELECT COUNT(*) FROM listings),
			(SELECT COUNT(*) FROM listing_entries),
			(SELECT COUNT(*) FROM model_runs)
	`).Scan(&c.Lifecycle, &c.Listings, &c.ListingEntries, &c.ModelRuns)
	if err != nil {
		return c, wrap("failed to count rows", err)
	}
	return c, nil
}
