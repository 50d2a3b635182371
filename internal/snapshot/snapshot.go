package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Writer persists timestamped raw copies of fetched upstream documents
// for audit and replay. Files are byte-identical to the response body and
// independent of whatever the pipeline later does to the data.
type Writer struct {
	dir string
}

// NewWriter creates a snapshot writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Save writes one raw document under a name like
// bootstrap_2024-08-10T14-00-00Z.json, keyed by a UTC timestamp with
// second precision. Returns the written path.
func (w *Writer) Save(name string, raw []byte) (string, error) {
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", name, stamp))

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}

	log.Debug().
		Str("document", name).
		Str("path", path).
		Int("size", len(raw)).
		Msg("Raw snapshot saved")

	return path, nil
}
