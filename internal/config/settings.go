// Package config provides the cransurv settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/features"
	"github.com/MF0323/cransurv/internal/lifecycle"
)

// FileName is the settings file inside Dir.
const FileName = "config.yaml"

// Dir returns the cransurv config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/cransurv if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "cransurv"), nil
}

// DefaultPath returns the settings file path under Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Settings is the structure of config.yaml.
type Settings struct {
	// ReferenceDate is the data collection date, used as the end date of
	// packages still on CRAN.
	ReferenceDate     string         `yaml:"reference_date"`
	SentinelException string         `yaml:"sentinel_exception,omitempty"`
	PeriodBreaks      []int          `yaml:"period_breaks"`
	LicenseAllowList  []string       `yaml:"license_allow_list,omitempty"`
	Listings          ListingsConfig `yaml:"listings"`
}

// ListingsConfig names the two point-in-time listings.
type ListingsConfig struct {
	Earlier ListingConfig `yaml:"earlier"`
	Later   ListingConfig `yaml:"later"`
}

// ListingConfig identifies one listing by label and capture date.
type ListingConfig struct {
	Label string `yaml:"label"`
	Date  string `yaml:"date"` // YYYY-MM-DD
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		ReferenceDate: "2020-06-01",
		PeriodBreaks:  append([]int(nil), lifecycle.DefaultBreaks...),
		Listings: ListingsConfig{
			Earlier: ListingConfig{Label: "2015", Date: "2015-06-01"},
			Later:   ListingConfig{Label: "2020", Date: "2020-06-01"},
		},
	}
}

// Load reads the settings file at path. If the file does not exist, the
// defaults are returned without an error. Fields left out of the file keep
// their default values.
func Load(path string) (*Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path, creating the parent directory.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Validate checks dates, breaks and listing order. All problems are
// reported together.
func (s *Settings) Validate() error {
	var errs []error

	if _, err := s.Reference(); err != nil {
		errs = append(errs, err)
	}
	if _, err := lifecycle.NewPeriods(s.PeriodBreaks); err != nil {
		errs = append(errs, fmt.Errorf("period_breaks: %w", err))
	}

	earlier, errE := s.Listings.Earlier.Time()
	later, errL := s.Listings.Later.Time()
	if errE != nil {
		errs = append(errs, fmt.Errorf("listings.earlier: %w", errE))
	}
	if errL != nil {
		errs = append(errs, fmt.Errorf("listings.later: %w", errL))
	}
	if errE == nil && errL == nil && !earlier.Before(later) {
		errs = append(errs, fmt.Errorf("listings.earlier date %s must precede listings.later date %s",
			s.Listings.Earlier.Date, s.Listings.Later.Date))
	}
	if s.Listings.Earlier.Label == "" || s.Listings.Later.Label == "" {
		errs = append(errs, errors.New("listings need a label"))
	} else if s.Listings.Earlier.Label == s.Listings.Later.Label {
		errs = append(errs, fmt.Errorf("listing labels must differ, both are %q", s.Listings.Earlier.Label))
	}

	return errors.Join(errs...)
}

// Reference returns ReferenceDate as a finite date.
func (s *Settings) Reference() (cran.Date, error) {
	d, err := cran.ParseDate(s.ReferenceDate)
	if err != nil {
		return cran.Absent(), fmt.Errorf("reference_date: %w", err)
	}
	if !d.IsFinite() {
		return cran.Absent(), fmt.Errorf("reference_date %q is not a calendar date", s.ReferenceDate)
	}
	return d, nil
}

// Time parses the listing date.
func (l ListingConfig) Time() (time.Time, error) {
	return time.Parse(cran.DateLayout, l.Date)
}

// Periods builds the cohort periods from PeriodBreaks.
func (s *Settings) Periods() (lifecycle.Periods, error) {
	return lifecycle.NewPeriods(s.PeriodBreaks)
}

// LicenseGrouper returns a grouper over the configured allow-list, or the
// default list when none is set.
func (s *Settings) LicenseGrouper() *features.LicenseGrouper {
	return features.NewLicenseGrouper(s.LicenseAllowList)
}

// NormalizeOptions returns the lifecycle normalizer options.
func (s *Settings) NormalizeOptions() (lifecycle.Options, error) {
	ref, err := s.Reference()
	if err != nil {
		return lifecycle.Options{}, err
	}
	return lifecycle.Options{ReferenceDate: ref, SentinelException: s.SentinelException}, nil
}
