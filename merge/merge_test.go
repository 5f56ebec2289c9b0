package merge

import (
	"os"
	"testing"
	"time"

	"github.com/ioos/hfrnet-totals/radial"
	"github.com/ioos/hfrnet-totals/total"
)

type fakeLog struct{ lines []string }

func (f *fakeLog) Debugf(format string, args ...interface{})   { f.lines = append(f.lines, format) }
func (f *fakeLog) Warningf(format string, args ...interface{}) { f.lines = append(f.lines, format) }
func (f *fakeLog) Errorf(format string, args ...interface{})   { f.lines = append(f.lines, format) }

func newTotal() *total.Total {
	return total.New("mwx", "6km", time.Now(), []float64{30.1, 30.2}, []float64{-80.1, -80.2})
}

func TestMergeWithNoPriorFileInitsHistory(t *testing.T) {
	dir := t.TempDir()
	cur := newTotal()
	if err := cur.SetCell(0, 1, 2, 0.1, 0.1, 0.5, 3, 2); err != nil {
		t.Fatal(err)
	}

	log := &fakeLog{}
	res, err := Merge(log, dir+"/prior.gob", cur, false, "hfrnet-totals", "tester", time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.NewSolutions != 1 || res.TotalSolutions != 1 || res.Unmodified != 0 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(cur.History) != 1 || cur.History[0].Message != "Saving 1 new solutions" {
		t.Fatalf("unexpected history: %+v", cur.History)
	}
}

func TestMergeDuringReprocessWithExistingPriorIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prior.gob"
	if err := total.Save(path, newTotal()); err != nil {
		t.Fatal(err)
	}

	cur := newTotal()
	_, err := Merge(&fakeLog{}, path, cur, true, "hfrnet-totals", "tester", time.Now())
	if err == nil {
		t.Fatal("expected a ReprocessInvariant error")
	}
	if _, ok := err.(*ReprocessInvariant); !ok {
		t.Fatalf("expected *ReprocessInvariant, got %T: %v", err, err)
	}
}

func TestMergeUnreadablePriorFileWarnsAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prior.gob"
	if err := os.WriteFile(path, []byte("not a valid gob stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	cur := newTotal()
	if err := cur.SetCell(0, 1, 2, 0.1, 0.1, 0.5, 3, 2); err != nil {
		t.Fatal(err)
	}
	log := &fakeLog{}
	res, err := Merge(log, path, cur, false, "hfrnet-totals", "tester", time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.TotalSolutions != 1 || res.Unmodified != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(log.lines) == 0 {
		t.Fatal("expected at least one warning to be logged")
	}
}

func TestMergeCarriesOverCellsUnsetInCurrent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prior.gob"

	prior := newTotal()
	if err := prior.SetCell(0, 1, 2, 0.1, 0.1, 0.5, 3, 2); err != nil {
		t.Fatal(err)
	}
	if err := prior.SetCell(1, 5, 6, 0.2, 0.2, 0.7, 4, 3); err != nil {
		t.Fatal(err)
	}
	if err := total.Save(path, prior); err != nil {
		t.Fatal(err)
	}

	cur := newTotal()
	if err := cur.SetCell(0, 10, 20, 0.3, 0.3, 0.9, 5, 4); err != nil {
		t.Fatal(err)
	}
	// cell 1 left unset in the current run.

	res, err := Merge(&fakeLog{}, path, cur, false, "hfrnet-totals", "tester", time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Unmodified != 1 {
		t.Fatalf("expected 1 unmodified cell, got %d", res.Unmodified)
	}
	if cur.U[1] != 5 || cur.V[1] != 6 || cur.DOPX[1] != 0.2 || cur.DOPY[1] != 0.2 || cur.HDOP[1] != 0.7 {
		t.Fatalf("cell 1 was not carried over intact: %+v", cur)
	}
	if cur.NRads[1] != 4 || cur.NSites[1] != 3 {
		t.Fatalf("cell 1 counts were not carried over: nRads=%d nSites=%d", cur.NRads[1], cur.NSites[1])
	}
	// cell 0 must retain the current run's own solution, not the prior's.
	if cur.U[0] != 10 {
		t.Fatalf("cell 0 should not have been overwritten by prior: u=%v", cur.U[0])
	}
	if res.TotalSolutions != 2 {
		t.Fatalf("expected 2 total solutions after carry-over, got %d", res.TotalSolutions)
	}
}

func TestMergeHistoryMessageFormat(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prior.gob"

	prior := newTotal()
	if err := prior.SetCell(1, 5, 6, 0.2, 0.2, 0.7, 4, 3); err != nil {
		t.Fatal(err)
	}
	prior.InitHistory("hfrnet-totals", "tester", time.Now(), 1)
	if err := total.Save(path, prior); err != nil {
		t.Fatal(err)
	}

	cur := newTotal()
	if err := cur.SetCell(0, 10, 20, 0.3, 0.3, 0.9, 5, 4); err != nil {
		t.Fatal(err)
	}

	res, err := Merge(&fakeLog{}, path, cur, false, "hfrnet-totals", "tester", time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := "Saving 2 solutions; 1 new or updated, 1 unmodified from previous run(s)"
	got := cur.History[len(cur.History)-1].Message
	if got != want {
		t.Fatalf("unexpected history message:\n got: %q\nwant: %q", got, want)
	}
	if res.TotalSolutions != 2 || res.NewSolutions != 1 || res.Unmodified != 1 {
		t.Fatalf("unexpected result counts: %+v", res)
	}
}

func TestMergeUnionsRadialsBySiteIdentity(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prior.gob"

	prior := newTotal()
	prior.Radials = []radial.Record{
		{Network: "mwx", Site: "BRAG", PatternType: "i"},
		{Network: "mwx", Site: "GCPT", PatternType: "m"},
	}
	if err := total.Save(path, prior); err != nil {
		t.Fatal(err)
	}

	cur := newTotal()
	cur.Radials = []radial.Record{
		{Network: "mwx", Site: "BRAG", PatternType: "i"}, // already present, should not duplicate
		{Network: "mwx", Site: "NANT", PatternType: "i"},
	}

	res, err := Merge(&fakeLog{}, path, cur, false, "hfrnet-totals", "tester", time.Now())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(res.Radials) != 3 {
		t.Fatalf("expected 3 unioned radials, got %d: %+v", len(res.Radials), res.Radials)
	}
}

func TestUnionRadialsDoesNotDuplicateMatchingSite(t *testing.T) {
	current := []radial.Record{{Network: "mwx", Site: "BRAG", PatternType: "i"}}
	prior := []radial.Record{
		{Network: "mwx", Site: "BRAG", PatternType: "i"},
		{Network: "mwx", Site: "BRAG", PatternType: "m"}, // different pattern type: distinct record
	}
	out := UnionRadials(current, prior)
	if len(out) != 2 {
		t.Fatalf("expected 2 records (dedup by network+site+patterntype), got %d", len(out))
	}
}
