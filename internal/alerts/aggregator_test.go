package alerts

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func testCtx(t time.Time) *appctx.Context {
	return &appctx.Context{Clock: fakeClock{t: t}}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	agg := New(testCtx(now))

	got := agg.Append(models.Alert{CameraName: "cam1", Kind: models.AlertMotion})
	if got.ID == "" {
		t.Fatal("expected a non-empty id")
	}
	if !got.Timestamp.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, got.Timestamp)
	}
}

func TestRemoveManyDescendingStaysValid(t *testing.T) {
	agg := New(testCtx(time.Now()))
	for i := 0; i < 5; i++ {
		agg.Append(models.Alert{CameraName: "cam1", Kind: models.AlertMotion, Message: string(rune('a' + i))})
	}
	removed := agg.RemoveMany([]int{0, 2, 4})
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	remaining := agg.Snapshot()
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	if remaining[0].Message != "b" || remaining[1].Message != "d" {
		t.Fatalf("unexpected survivors: %+v", remaining)
	}
}

func TestExportCSVEscaping(t *testing.T) {
	agg := New(testCtx(time.Now()))
	agg.Append(models.Alert{
		ID:         "1",
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CameraName: "cam1",
		Kind:       models.AlertMotion,
		Message:    "He said, \"hi\"\nOK",
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.csv")
	if err := agg.ExportToCSV(path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `He said, "hi"` + "\n" + `OK`
	if !contains(string(data), `"He said, ""hi""`) {
		t.Fatalf("expected doubled quotes in CSV output, got %q", data)
	}

	rows, err := readAllCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[1][4] != want {
		t.Fatalf("round trip mismatch: got %q want %q", rows[1][4], want)
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	agg := New(testCtx(time.Now()))
	for i := 0; i < 3; i++ {
		agg.Append(models.Alert{CameraName: "cam1", Kind: models.AlertMotion})
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.json")
	if err := agg.ExportToJSON(path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc jsonExport
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.TotalCount != 3 || len(doc.Alerts) != 3 {
		t.Fatalf("expected 3 alerts, got totalCount=%d len=%d", doc.TotalCount, len(doc.Alerts))
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func readAllCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}
