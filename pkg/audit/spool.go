package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	spoolCurrent = "audit.ndjson"
	spoolPrefix  = "audit-"
)

// Spool is the local NDJSON fallback for audit events the storage backend
// could not take. One event per line, appended to a current file that
// rotates into timestamped segments once it grows past the size cap.
// Rotated segments are what the S3 archiver ships and deletes.
type Spool struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	file     *os.File
	size     int64
}

// SpoolOption configures a Spool.
type SpoolOption func(*Spool)

// WithMaxSegmentSize caps the current file before rotation.
func WithMaxSegmentSize(n int64) SpoolOption {
	return func(s *Spool) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// NewSpool opens (or creates) a spool directory.
func NewSpool(dir string, opts ...SpoolOption) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Join(ErrSpoolFailed, err)
	}

	s := &Spool{
		dir:      dir,
		maxBytes: 32 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.OpenFile(filepath.Join(dir, spoolCurrent), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Join(ErrSpoolFailed, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Join(ErrSpoolFailed, err)
	}

	s.file = f
	s.size = info.Size()
	return s, nil
}

// Write appends events to the current segment.
func (s *Spool) Write(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var buf strings.Builder
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return errors.Join(ErrSpoolFailed, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrSpoolFailed
	}
	if s.size+int64(buf.Len()) > s.maxBytes {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := s.file.WriteString(buf.String())
	s.size += int64(n)
	if err != nil {
		return errors.Join(ErrSpoolFailed, err)
	}
	return nil
}

// Rotate closes the current file into a timestamped segment and starts a
// fresh one. A no-op when the current file is empty.
func (s *Spool) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size == 0 {
		return nil
	}
	return s.rotateLocked()
}

func (s *Spool) rotateLocked() error {
	if err := s.file.Close(); err != nil {
		return errors.Join(ErrSpoolFailed, err)
	}

	segment := fmt.Sprintf("%s%d.ndjson", spoolPrefix, time.Now().UnixNano())
	if err := os.Rename(filepath.Join(s.dir, spoolCurrent), filepath.Join(s.dir, segment)); err != nil {
		return errors.Join(ErrSpoolFailed, err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, spoolCurrent), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Join(ErrSpoolFailed, err)
	}
	s.file = f
	s.size = 0
	return nil
}

// Segments lists rotated segment filenames, oldest first.
func (s *Spool) Segments() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Join(ErrSpoolFailed, err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, spoolPrefix) && strings.HasSuffix(name, ".ndjson") {
			segments = append(segments, name)
		}
	}
	return segments, nil
}

// Open returns a reader over one rotated segment.
func (s *Spool) Open(segment string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(segment)))
	if err != nil {
		return nil, errors.Join(ErrSpoolFailed, err)
	}
	return f, nil
}

// Remove deletes a rotated segment after it has been archived.
func (s *Spool) Remove(segment string) error {
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(segment))); err != nil {
		return errors.Join(ErrSpoolFailed, err)
	}
	return nil
}

// Close flushes and closes the current file.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
