// Package export writes attendance events as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"kiosk/internal/attendance"
)

// Header is the first row of every export.
var Header = []string{"id", "employee_id", "employee_name", "timestamp", "confidence", "kind"}

func row(evt attendance.Event) []string {
	return []string{
		evt.ID,
		evt.EmployeeID,
		evt.EmployeeName,
		evt.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatFloat(evt.Confidence, 'f', 2, 64),
		string(evt.Kind),
	}
}

// WriteEvents writes a header followed by one row per event.
func WriteEvents(w io.Writer, events []attendance.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, evt := range events {
		if err := cw.Write(row(evt)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileAppender appends events to a CSV file, writing the header once when
// the file is new or empty.
type FileAppender struct {
	path string
	mu   sync.Mutex
}

// NewFileAppender returns an appender for path. The file is created lazily.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path}
}

// Append writes one row.
func (a *FileAppender) Append(evt attendance.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat export: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			return err
		}
	}
	if err := cw.Write(row(evt)); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
