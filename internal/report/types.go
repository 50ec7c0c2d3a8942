package report

// Report is the JSON form of a finished batch.
type Report struct {
	Version     int        `json:"version"`
	GeneratedAt string     `json:"generated_at"`
	BatchID     string     `json:"batch_id"`
	Profile     string     `json:"profile"`
	BuildInfo   *BuildInfo `json:"build_info,omitempty"`
	Items       []Item     `json:"items"` // completion order
	Stats       Stats      `json:"stats"`
}

// BuildInfo captures run parameters for diagnostics.
type BuildInfo struct {
	Workers   int   `json:"workers"`
	ElapsedMs int64 `json:"elapsed_ms"`
}

// Status values for Item.Status.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Item is one conversion outcome.
type Item struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Width       uint32 `json:"width,omitempty"`
	Height      uint32 `json:"height,omitempty"`
	Size        int64  `json:"size,omitempty"` // PNG bytes on disk
	Hash        string `json:"hash,omitempty"` // xxhash64, 16 hex chars
	ErrorKind   string `json:"error_kind,omitempty"`
	Message     string `json:"message,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// Stats aggregates batch metrics.
type Stats struct {
	Total            int   `json:"total"`
	Succeeded        int   `json:"succeeded"`
	Failed           int   `json:"failed"`
	Cancelled        int   `json:"cancelled"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
}

// SupportedVersion is the current schema version.
const SupportedVersion = 1
