package lifecycle

import (
	"testing"

	"github.com/MF0323/cransurv/internal/cran"
)

var referenceDate = cran.MustDate("2020-06-01")

func testOptions() Options {
	return Options{ReferenceDate: referenceDate, SentinelException: "special"}
}

func findRecord(records []Record, pkg string) (Record, bool) {
	for _, r := range records {
		if r.Pkg == pkg {
			return r, true
		}
	}
	return Record{}, false
}

func TestNormalize_DropsUnboundedFirst(t *testing.T) {
	raw := []cran.LifecycleRecord{
		{Pkg: "ok", CRANDate: cran.MustDate("2020-01-01"), First: cran.MustDate("2010-01-01"), Latest: cran.MustDate("2019-01-01")},
		{Pkg: "neg", CRANDate: cran.MustDate("2020-01-01"), First: cran.NegInf(), Latest: cran.MustDate("2019-01-01")},
		{Pkg: "pos", First: cran.PosInf(), Latest: cran.PosInf()},
	}

	got, stats := Normalize(raw, testOptions())

	if len(got) != 1 || got[0].Pkg != "ok" {
		t.Fatalf("Normalize() kept %+v, want only ok", got)
	}
	if stats.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped)
	}
	for _, r := range got {
		if r.First.IsUnbounded() {
			t.Errorf("%s kept an unbounded First", r.Pkg)
		}
	}
}

func TestNormalize_SentinelException(t *testing.T) {
	raw := []cran.LifecycleRecord{
		{Pkg: "special", CRANDate: cran.MustDate("2020-01-01"), First: cran.NegInf(), Latest: cran.PosInf()},
	}

	got, stats := Normalize(raw, testOptions())

	r, ok := findRecord(got, "special")
	if !ok {
		t.Fatal("sentinel exception should be kept")
	}
	if !r.First.IsAbsent() || !r.Latest.IsAbsent() {
		t.Errorf("sentinel exception First=%q Latest=%q, want both absent", r.First, r.Latest)
	}
	if !stats.ExceptionApplied {
		t.Error("ExceptionApplied should be true")
	}
}

func TestNormalize_MissingExceptionIsNoOp(t *testing.T) {
	raw := []cran.LifecycleRecord{
		{Pkg: "ok", CRANDate: cran.MustDate("2020-01-01"), First: cran.MustDate("2010-01-01"), Latest: cran.MustDate("2019-01-01")},
	}

	got, stats := Normalize(raw, testOptions())
	if len(got) != 1 {
		t.Fatalf("Normalize() returned %d records, want 1", len(got))
	}
	if stats.ExceptionApplied {
		t.Error("ExceptionApplied should be false when the package is absent")
	}
}

func TestNormalize_RemovedIffCRANDateAbsent(t *testing.T) {
	raw := []cran.LifecycleRecord{
		{Pkg: "live", CRANDate: cran.MustDate("2020-01-01"), First: cran.MustDate("2010-01-01"), Latest: cran.MustDate("2019-01-01")},
		{Pkg: "dead", First: cran.MustDate("2008-01-01"), Latest: cran.MustDate("2012-05-05")},
		{Pkg: "dead-inf", First: cran.MustDate("2008-01-01"), Latest: cran.PosInf()},
	}

	got, stats := Normalize(raw, testOptions())
	for _, r := range got {
		if r.Removed != r.CRANDate.IsAbsent() {
			t.Errorf("%s: Removed = %v with CRANDate %q", r.Pkg, r.Removed, r.CRANDate)
		}
	}

	dead, _ := findRecord(got, "dead")
	if dead.EndDate.String() != "2012-05-05" {
		t.Errorf("removed EndDate = %q, want Latest", dead.EndDate)
	}
	live, _ := findRecord(got, "live")
	if live.EndDate != referenceDate {
		t.Errorf("live EndDate = %q, want reference date", live.EndDate)
	}
	deadInf, _ := findRecord(got, "dead-inf")
	if !deadInf.EndDate.IsAbsent() {
		t.Errorf("unbounded Latest should give an absent EndDate, got %q", deadInf.EndDate)
	}
	if stats.RemovedPackages != 2 || stats.CensoredPackages != 1 || stats.AbsentEndDate != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNormalize_EndToEndScenario(t *testing.T) {
	day100 := cran.NewDate(referenceDate.Time().AddDate(0, 0, -100))
	raw := []cran.LifecycleRecord{
		{Pkg: "row1", CRANDate: cran.MustDate("2019-11-11")},
		{Pkg: "row2", Latest: day100},
	}

	got, stats := Normalize(raw, testOptions())
	if len(got) != 2 {
		t.Fatalf("Normalize() returned %d records, want 2", len(got))
	}

	row1, _ := findRecord(got, "row1")
	if row1.Removed {
		t.Error("row1 should not be removed")
	}
	if row1.EndDate != referenceDate {
		t.Errorf("row1 EndDate = %q, want %q", row1.EndDate, referenceDate)
	}

	row2, _ := findRecord(got, "row2")
	if !row2.Removed {
		t.Error("row2 should be removed")
	}
	if row2.EndDate != day100 {
		t.Errorf("row2 EndDate = %q, want %q", row2.EndDate, day100)
	}
	if stats.NeverArchived != 1 {
		t.Errorf("NeverArchived = %d, want 1", stats.NeverArchived)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := []cran.LifecycleRecord{
		{Pkg: "special", CRANDate: cran.MustDate("2020-01-01"), First: cran.NegInf(), Latest: cran.PosInf()},
	}
	Normalize(raw, testOptions())
	if !raw[0].First.IsUnbounded() {
		t.Error("Normalize() modified its input")
	}
}

func TestRecordDuration(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		want   float64
		wantOK bool
	}{
		{
			name:   "finite",
			rec:    Record{LifecycleRecord: cran.LifecycleRecord{First: cran.MustDate("2015-01-01")}, EndDate: cran.MustDate("2015-01-31")},
			want:   30,
			wantOK: true,
		},
		{
			name: "absent first",
			rec:  Record{EndDate: cran.MustDate("2015-01-31")},
		},
		{
			name: "end before start",
			rec:  Record{LifecycleRecord: cran.LifecycleRecord{First: cran.MustDate("2015-02-01")}, EndDate: cran.MustDate("2015-01-31")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rec.Duration()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Duration() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
