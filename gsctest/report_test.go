package gsctest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"osnma/output"
)

func sampleResults() []output.GSCResult {
	return []output.GSCResult{
		{Name: "scenario A", Passed: true, Detail: "3 checks passed"},
		{Name: "scenario B", Passed: false, Detail: "tag mismatch: got 1, want 0"},
	}
}

func TestBuildReportTallies(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := BuildReport(sampleResults(), ts)
	if r.Total != 2 || r.Passed != 1 || r.Failed != 1 {
		t.Errorf("got Total=%d Passed=%d Failed=%d, want 2/1/1", r.Total, r.Passed, r.Failed)
	}
	if !r.Timestamp.Equal(ts) {
		t.Error("BuildReport should preserve the supplied timestamp")
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := BuildReport(sampleResults(), ts)
	path := filepath.Join(t.TempDir(), "report.json")
	if err := r.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if got.Total != r.Total || got.Passed != r.Passed || got.Failed != r.Failed {
		t.Errorf("round-tripped report mismatch: got %+v, want %+v", got, r)
	}
	if len(got.Results) != 2 || got.Results[1].Name != "scenario B" {
		t.Errorf("round-tripped results mismatch: got %+v", got.Results)
	}
}

func TestWriteHTMLProducesNonEmptyFile(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := BuildReport(sampleResults(), ts)
	path := filepath.Join(t.TempDir(), "report.html")
	if err := r.WriteHTML(path); err != nil {
		t.Fatalf("WriteHTML: unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("WriteHTML produced an empty file")
	}
	html := string(data)
	for _, want := range []string{"scenario A", "scenario B", "OSNMA GSC Scenario Report"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}
