package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/panelgate/internal/model"
)

// FileSink appends JSON lines to audit-YYYY-MM-DD.jsonl under dir, switching
// files when the UTC day changes.
type FileSink struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	day string
	f   *os.File
	enc *json.Encoder
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	s := &FileSink{dir: dir, now: func() time.Time { return time.Now().UTC() }}
	if err := s.rotate(s.now().Format(time.DateOnly)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) Append(_ context.Context, rec *model.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day := s.now().Format(time.DateOnly); day != s.day || s.f == nil {
		if err := s.rotate(day); err != nil {
			return err
		}
	}
	// Encode 一次写入一整行
	return s.enc.Encode(rec)
}

func (s *FileSink) rotate(day string) error {
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	f, err := os.OpenFile(s.path(day), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	s.f = f
	s.enc = json.NewEncoder(f)
	s.day = day
	return nil
}

func (s *FileSink) path(day string) string {
	return filepath.Join(s.dir, "audit-"+day+".jsonl")
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
