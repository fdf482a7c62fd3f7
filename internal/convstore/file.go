package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
)

// FileStore keeps every conversation record in one JSON document on disk.
// It is the zero-dependency backend used by the local simulator; writes go
// through a temp file and rename so a crash never leaves a torn document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileDocument struct {
	Carts map[string]*conversation.Record `json:"carts"`
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) GetOrCreate(_ context.Context, phone string) (*conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if rec, ok := doc.Carts[phone]; ok {
		return rec.Clone(), nil
	}

	rec := conversation.NewRecord(phone)
	rec.UpdatedAt = time.Now().UTC()
	doc.Carts[phone] = rec
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *FileStore) Replace(_ context.Context, phone string, rec *conversation.Record) (*conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if stored, ok := doc.Carts[phone]; ok && stored.Version != rec.Version {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "conversation was modified concurrently")
	}

	next := rec.Clone()
	next.Phone = phone
	next.Version = rec.Version + 1
	next.UpdatedAt = time.Now().UTC()
	doc.Carts[phone] = next
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

func (s *FileStore) ListAll(_ context.Context) ([]*conversation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	records := make([]*conversation.Record, 0, len(doc.Carts))
	for _, rec := range doc.Carts {
		records = append(records, rec.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.Before(records[j].UpdatedAt)
	})
	return records, nil
}

func (s *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{Carts: map[string]*conversation.Record{}}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decoding store file: %w", err)
	}
	if doc.Carts == nil {
		doc.Carts = map[string]*conversation.Record{}
	}
	return doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}
