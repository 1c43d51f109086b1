package storage

import (
	"fmt"

	"agoda-scraper/models"
)

// MultiWriter fans one append out to several sinks. A failure in any
// sink fails the append, so the caller's failure classification sees
// it — rows are never silently half-written.
type MultiWriter struct {
	writers []RowWriter
}

func NewMultiWriter(writers ...RowWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Append(r models.RoomRecord) error {
	for _, w := range m.writers {
		if err := w.Append(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiWriter) Close() error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close sink: %w", err)
		}
	}
	return firstErr
}
