package features

// License group labels.
const (
	LicenseGPL2Group = "GPL(V2+) Group"
	LicenseGPL3Group = "GPL(V3+) Group"
	LicenseOthers    = "Others"
)

var gpl2Family = map[string]bool{
	"GPL-2":        true,
	"GPL (>= 2)":   true,
	"GPL (>= 2.0)": true,
}

var gpl3Family = map[string]bool{
	"GPL-3":      true,
	"GPL (>= 3)": true,
}

// DefaultLicenseAllowList holds frequent CRAN license strings that are kept
// as their own group.
var DefaultLicenseAllowList = []string{
	"GPL",
	"GPL-2 | GPL-3",
	"MIT + file LICENSE",
	"LGPL-3",
	"LGPL-2.1",
	"LGPL (>= 2)",
	"BSD_3_clause + file LICENSE",
	"BSD_2_clause + file LICENSE",
	"Apache License 2.0",
	"Artistic-2.0",
	"AGPL-3",
	"CC0",
}

// LicenseGrouper collapses raw license strings into a small set of groups.
type LicenseGrouper struct {
	allow map[string]bool
	order []string
}

// NewLicenseGrouper returns a grouper that passes the allow-listed strings
// through unchanged. A nil list uses DefaultLicenseAllowList.
func NewLicenseGrouper(allowList []string) *LicenseGrouper {
	if allowList == nil {
		allowList = DefaultLicenseAllowList
	}
	g := &LicenseGrouper{allow: make(map[string]bool, len(allowList))}
	for _, l := range allowList {
		if g.allow[l] || gpl2Family[l] || gpl3Family[l] {
			continue
		}
		g.allow[l] = true
		g.order = append(g.order, l)
	}
	return g
}

// Group maps a license string to its group. GPL-2 family is checked first,
// then GPL-3 family, then the allow-list; anything else is "Others".
func (g *LicenseGrouper) Group(license string) string {
	switch {
	case gpl2Family[license]:
		return LicenseGPL2Group
	case gpl3Family[license]:
		return LicenseGPL3Group
	case g != nil && g.allow[license]:
		return license
	}
	return LicenseOthers
}

// Levels returns every group the grouper can produce. "Others" comes first
// so that it is the reference level in model designs.
func (g *LicenseGrouper) Levels() []string {
	levels := []string{LicenseOthers, LicenseGPL2Group, LicenseGPL3Group}
	if g != nil {
		levels = append(levels, g.order...)
	}
	return levels
}
