// Package features derives the categorical and numeric covariates used by
// the survival models from raw CRAN listing fields.
package features

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MF0323/cransurv/internal/cran"
)

// Version bucket labels.
const (
	BucketOthers       = "others"
	BucketConsolidated = "1-4"
)

// VersionBuckets lists the version bucket levels, reference level first.
var VersionBuckets = []string{"0", "1", "2", "3", "4", BucketOthers}

// ConsolidatedVersionBuckets lists the simplified levels, reference first.
var ConsolidatedVersionBuckets = []string{"0", BucketConsolidated, BucketOthers}

// depName matches the package name at the start of a Depends entry.
var depName = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9.]*)`)

// Features are the covariates derived from one listing entry.
type Features struct {
	VersionBucket         string
	DependsOnVersionedPkg bool
	DependencyCount       int
	LicenseGroup          string
	LicenseHasAlternative bool
}

// ParseMajor returns the integer before the first "." of a version string.
// The whole string is used when there is no ".". ok is false when that
// prefix is not an integer.
func ParseMajor(version string) (major int, ok bool) {
	prefix := version
	if i := strings.IndexByte(version, '.'); i >= 0 {
		prefix = version[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// VersionBucket maps a version string to "0" through "4" or "others".
// A major component that does not parse as an integer is bucketed as
// "others".
func VersionBucket(version string) string {
	major, ok := ParseMajor(version)
	if !ok {
		return BucketOthers
	}
	if major >= 0 && major <= 4 {
		return strconv.Itoa(major)
	}
	return BucketOthers
}

// ConsolidatedVersionBucket merges buckets "1" to "4" into "1-4".
func ConsolidatedVersionBucket(bucket string) string {
	switch bucket {
	case "1", "2", "3", "4":
		return BucketConsolidated
	}
	return bucket
}

// DependsOnVersionedPkg reports whether any dependency carries a ">="
// version constraint.
func DependsOnVersionedPkg(depends string) bool {
	return strings.Contains(depends, "(>=")
}

// DependencyNames returns the package names listed in a Depends field,
// including R itself.
func DependencyNames(depends string) []string {
	var names []string
	for _, part := range strings.Split(depends, ",") {
		if m := depName.FindStringSubmatch(part); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// DependencyCount counts the named entries of a Depends field. Single-letter
// names count too, so "R (>= 3.0.0), methods, utils" has three.
func DependencyCount(depends string) int {
	return len(DependencyNames(depends))
}

// LicenseHasAlternative reports whether the license offers alternatives
// separated by "|".
func LicenseHasAlternative(license string) bool {
	return strings.Contains(license, "|")
}

// Extract derives all features of a listing entry.
func Extract(e cran.ListingEntry, g *LicenseGrouper) Features {
	return Features{
		VersionBucket:         VersionBucket(e.Version),
		DependsOnVersionedPkg: DependsOnVersionedPkg(e.Depends),
		DependencyCount:       DependencyCount(e.Depends),
		LicenseGroup:          g.Group(e.License),
		LicenseHasAlternative: LicenseHasAlternative(e.License),
	}
}
