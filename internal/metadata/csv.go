// Package metadata records generated samples for the training pipeline.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// File names used inside an output directory.
const (
	FileName       = "metadata.csv"
	CompareDirName = "compare"
)

var (
	SampleHeader     = []string{"image_id", "path", "is_correct"}
	ComparisonHeader = []string{"image_id_1", "image_id_2", "path", "correct_image_index"}
	CategoryHeader   = []string{"image_id", "path", "categories"}
)

// ErrHeaderMismatch is returned when an existing log has a different header.
var ErrHeaderMismatch = errors.New("metadata header mismatch")

// Row is one CSV record.
type Row interface {
	Record() []string
}

// SampleRow labels a single generated image.
type SampleRow struct {
	ImageID string
	Path    string
	Correct bool
}

func (r SampleRow) Record() []string {
	correct := "0"
	if r.Correct {
		correct = "1"
	}
	return []string{r.ImageID, r.Path, correct}
}

// ComparisonRow labels a side-by-side pair.
type ComparisonRow struct {
	ImageID1     string
	ImageID2     string
	Path         string
	CorrectIndex int
}

func (r ComparisonRow) Record() []string {
	return []string{r.ImageID1, r.ImageID2, r.Path, strconv.Itoa(r.CorrectIndex)}
}

// CategoryRow lists every category present in an image.
type CategoryRow struct {
	ImageID    string
	Path       string
	Categories []int
}

func (r CategoryRow) Record() []string {
	ids := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		ids[i] = strconv.Itoa(c)
	}
	return []string{r.ImageID, r.Path, strings.Join(ids, ";")}
}

// Log is an append-only CSV file. Appends from concurrent workers are
// serialized so every row lands whole.
type Log struct {
	mu     sync.Mutex
	path   string
	header []string
}

// OpenLog prepares the log at path, writing header if the file is new. An
// existing file must start with the same header.
func OpenLog(path string, header []string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create metadata directory: %w", err)
	}

	l := &Log{path: path, header: header}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		w := csv.NewWriter(f)
		w.Write(header)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	case errors.Is(err, os.ErrExist):
		rows, err := ReadLog(path)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 || strings.Join(rows[0], ",") != strings.Join(header, ",") {
			return nil, fmt.Errorf("%s: %w", path, ErrHeaderMismatch)
		}
	default:
		return nil, fmt.Errorf("cannot create %s: %w", path, err)
	}
	return l, nil
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// Append writes one row.
func (l *Log) Append(row Row) error {
	rec := row.Record()
	if len(rec) != len(l.header) {
		return fmt.Errorf("row has %d fields, header has %d", len(rec), len(l.header))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metadata: %w", err)
	}
	w := csv.NewWriter(f)
	w.Write(rec)
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to append metadata: %w", err)
	}
	return f.Close()
}

// ReadLog returns every record of a CSV log, header included.
func ReadLog(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}
