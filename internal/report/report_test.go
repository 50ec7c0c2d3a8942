package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AnyUserName/jpeg2png/internal/convert"
	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
	"github.com/AnyUserName/jpeg2png/internal/fixture"
	"github.com/AnyUserName/jpeg2png/internal/pipeline"
	"github.com/spf13/afero"
)

func TestReportRoundtrip(t *testing.T) {
	r := New("batch-1", "best")
	r.BuildInfo = &BuildInfo{Workers: 4, ElapsedMs: 12}
	r.Items = append(r.Items,
		Item{Source: "a.jpg", Destination: "a.png", Status: StatusOK, Width: 800, Height: 600, Size: 1000, Hash: "0123456789abcdef"},
		Item{Source: "b.jpg", Destination: "b.png", Status: StatusFailed, ErrorKind: "DecodeError", Message: "decode: bad"},
		Item{Source: "c.jpg", Destination: "c.png", Status: StatusCancelled, ErrorKind: "Cancelled", Message: "batch cancelled before start"},
	)

	fsys := afero.NewMemMapFs()
	if err := WriteJSON(fsys, r, "/out/report.json"); err != nil {
		t.Fatalf("write: %v", err)
	}

	r2, err := ReadJSON(fsys, "/out/report.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if r2.Version != SupportedVersion {
		t.Errorf("version: got %d, want %d", r2.Version, SupportedVersion)
	}
	if r2.BatchID != "batch-1" || r2.Profile != "best" {
		t.Errorf("header: got %q/%q", r2.BatchID, r2.Profile)
	}
	if r2.BuildInfo == nil || r2.BuildInfo.Workers != 4 {
		t.Fatal("build_info not parsed correctly")
	}
	if len(r2.Items) != 3 || r2.Items[1].ErrorKind != "DecodeError" {
		t.Errorf("items: got %+v", r2.Items)
	}
	want := Stats{Total: 3, Succeeded: 1, Failed: 1, Cancelled: 1, TotalOutputBytes: 1000}
	if r2.Stats != want {
		t.Errorf("stats: got %+v, want %+v", r2.Stats, want)
	}
}

func TestReportIgnoresUnknownFields(t *testing.T) {
	raw := `{
		"version": 1,
		"generated_at": "2025-01-01T00:00:00Z",
		"batch_id": "x",
		"profile": "fast",
		"future_field": "should be ignored",
		"build_info": { "workers": 8, "elapsed_ms": 3, "new_flag": true },
		"items": [],
		"stats": { "total": 0, "succeeded": 0, "failed": 0, "cancelled": 0, "total_output_bytes": 0, "new_stat": 42 }
	}`
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/r.json", []byte(raw), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r, err := ReadJSON(fsys, "/r.json")
	if err != nil {
		t.Fatalf("read with unknown fields: %v", err)
	}
	if r.BuildInfo == nil || r.BuildInfo.Workers != 8 {
		t.Error("build_info not parsed correctly")
	}
}

func TestFromBatch(t *testing.T) {
	br := pipeline.Report{
		BatchID: "b",
		Results: []convert.Result{
			{Request: convert.NewRequest("a.jpg", ""), Width: 2, Height: 3, Size: 99, Hash: "h", Duration: 5 * time.Millisecond},
			{Request: convert.NewRequest("b.jpg", ""), Err: apperrors.Newf(apperrors.KindDecodeError, "decode", "", "nope")},
			convert.Cancelled(convert.NewRequest("c.jpg", ""), "batch cancelled before start"),
		},
		Elapsed: time.Second,
	}

	r := FromBatch(br, "best", 2)
	if r.BuildInfo.ElapsedMs != 1000 || r.BuildInfo.Workers != 2 {
		t.Errorf("build info: got %+v", r.BuildInfo)
	}
	if r.Items[0].Status != StatusOK || r.Items[0].Width != 2 || r.Items[0].DurationMs != 5 {
		t.Errorf("ok item: got %+v", r.Items[0])
	}
	if r.Items[1].Status != StatusFailed || r.Items[1].ErrorKind != "DecodeError" || r.Items[1].Message != "decode: nope" {
		t.Errorf("failed item: got %+v", r.Items[1])
	}
	if r.Items[2].Status != StatusCancelled {
		t.Errorf("cancelled item: got %+v", r.Items[2])
	}
	if r.Stats.Succeeded != 1 || r.Stats.Failed != 1 || r.Stats.Cancelled != 1 {
		t.Errorf("stats: got %+v", r.Stats)
	}
}

func TestValidateAgainstEngineOutput(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/in", 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b"} {
		if err := afero.WriteFile(fsys, "/in/"+name+".jpg", fixture.GradientJPEG(30, 20), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	reqs := []convert.Request{convert.NewRequest("/in/a.jpg", ""), convert.NewRequest("/in/b.jpg", "")}

	eng := convert.New(convert.Options{Fs: fsys, Overwrite: true})
	br, err := pipeline.NewCoordinator(eng, nil).Run(context.Background(), reqs, 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	r := FromBatch(br, "best", 2)

	if errs := Validate(fsys, r, "/"); len(errs) != 0 {
		t.Fatalf("fresh report should validate, got: %v", errs)
	}

	// Tamper with one output.
	if err := afero.WriteFile(fsys, "/in/b.png", fixture.PNG(fixture.Gradient(10, 10)), 0o644); err != nil {
		t.Fatal(err)
	}
	errs := Validate(fsys, r, "/")
	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, "dimensions mismatch") || !strings.Contains(joined, "hash mismatch") {
		t.Errorf("expected dimension and hash mismatches, got: %v", errs)
	}

	if err := fsys.Remove("/in/a.png"); err != nil {
		t.Fatal(err)
	}
	errs = Validate(fsys, r, "/")
	if !strings.Contains(strings.Join(errs, "\n"), "file not found") {
		t.Errorf("expected missing file error, got: %v", errs)
	}
}

func TestValidateStatsAndStatus(t *testing.T) {
	r := New("x", "best")
	r.Items = []Item{{Source: "a.jpg", Destination: "a.png", Status: "weird"}}
	r.Stats.Total = 5

	errs := Validate(afero.NewMemMapFs(), r, "/")
	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, `unknown status "weird"`) {
		t.Errorf("missing status error: %v", errs)
	}
	if !strings.Contains(joined, "stats mismatch") {
		t.Errorf("missing stats error: %v", errs)
	}
}

func TestRelativize(t *testing.T) {
	dir := t.TempDir()
	r := New("b", "best")
	r.Items = []Item{
		{Source: "a.jpg", Destination: filepath.Join(dir, "out", "a.png"), Status: StatusOK},
		{Source: "b.jpg", Destination: filepath.Join(dir, "b.png"), Status: StatusOK},
	}

	if err := r.Relativize(filepath.Join(dir, "out")); err != nil {
		t.Fatal(err)
	}
	if got := filepath.ToSlash(r.Items[0].Destination); got != "a.png" {
		t.Errorf("item 0: got %q", got)
	}
	if got := filepath.ToSlash(r.Items[1].Destination); got != "../b.png" {
		t.Errorf("item 1: got %q", got)
	}
}
