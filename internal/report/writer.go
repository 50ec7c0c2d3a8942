package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/AnyUserName/jpeg2png/internal/atomicfile"
	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
	"github.com/AnyUserName/jpeg2png/internal/pipeline"
	"github.com/spf13/afero"
)

// New creates an empty report with defaults.
func New(batchID, profileName string) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		BatchID:     batchID,
		Profile:     profileName,
		Items:       []Item{},
	}
}

// FromBatch converts a finished batch into its JSON form.
func FromBatch(br pipeline.Report, profileName string, workers int) *Report {
	r := New(br.BatchID, profileName)
	r.BuildInfo = &BuildInfo{Workers: workers, ElapsedMs: br.Elapsed.Milliseconds()}
	for _, res := range br.Results {
		it := Item{
			Source:      res.Source,
			Destination: res.Destination,
			DurationMs:  res.Duration.Milliseconds(),
		}
		switch {
		case res.OK():
			it.Status = StatusOK
			it.Width, it.Height = res.Width, res.Height
			it.Size, it.Hash = res.Size, res.Hash
		default:
			it.Status = StatusFailed
			if res.Kind() == apperrors.KindCancelled {
				it.Status = StatusCancelled
			}
			it.ErrorKind = string(res.Kind())
			it.Message = res.Message()
		}
		r.Items = append(r.Items, it)
	}
	r.ComputeStats()
	return r
}

// Relativize rewrites destinations relative to dir, the directory the
// report will be written to, so Validate can resolve them from there.
// Destinations that cannot be made relative become absolute.
func (r *Report) Relativize(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	for i := range r.Items {
		abs, err := filepath.Abs(r.Items[i].Destination)
		if err != nil {
			return err
		}
		if rel, err := filepath.Rel(absDir, abs); err == nil {
			r.Items[i].Destination = rel
		} else {
			r.Items[i].Destination = abs
		}
	}
	return nil
}

// ComputeStats recalculates aggregate statistics from items.
func (r *Report) ComputeStats() {
	s := Stats{Total: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case StatusOK:
			s.Succeeded++
			s.TotalOutputBytes += it.Size
		case StatusCancelled:
			s.Cancelled++
		default:
			s.Failed++
		}
	}
	r.Stats = s
}

// WriteJSON serializes the report and replaces path atomically.
func WriteJSON(fsys afero.Fs, r *Report, path string) error {
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomicfile.Write(fsys, path, data, true)
}

// ReadJSON loads a report written by WriteJSON. Unknown fields are ignored.
func ReadJSON(fsys afero.Fs, path string) (*Report, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}
