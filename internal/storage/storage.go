// Package storage persists uploaded documents and fonts: metadata in
// Badger via badgerhold, blobs on the filesystem.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/phuslu/log"
	"github.com/timshannon/badgerhold/v4"

	"github.com/RodrigoAbrao/editor-pdf/internal/common"
	"github.com/RodrigoAbrao/editor-pdf/internal/models"
)

// ErrNotFound reports a missing document or font.
var ErrNotFound = errors.New("storage: not found")

// gcInterval is how often the Badger value log is compacted.
const gcInterval = 10 * time.Minute

// Store is the combined metadata and blob store.
type Store struct {
	db       *badgerhold.Store
	docsDir  string
	fontsDir string
	logger   *log.Logger
	stopGC   chan struct{}
}

// Open initializes the Badger store and the blob directories.
func Open(cfg *common.StorageConfig, logger *log.Logger) (*Store, error) {
	for _, dir := range []string{cfg.Badger.Path, cfg.Filesystem.Documents, cfg.Filesystem.Fonts} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Badger.Path
	options.ValueDir = cfg.Badger.Path
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	logger.Debug().Str("path", cfg.Badger.Path).Msg("storage initialized")

	s := &Store{
		db:       db,
		docsDir:  cfg.Filesystem.Documents,
		fontsDir: cfg.Filesystem.Fonts,
		logger:   logger,
		stopGC:   make(chan struct{}),
	}
	go s.gcLoop()
	return s, nil
}

// gcLoop compacts the Badger value log until the store is closed.
func (s *Store) gcLoop() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.Badger().RunValueLogGC(0.5)
			if err != nil && err != badger.ErrNoRewrite {
				s.logger.Warn().Err(err).Msg("value log GC failed")
			}
		}
	}
}

// Close stops background compaction and closes the metadata store.
func (s *Store) Close() error {
	close(s.stopGC)
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutDocument writes the blob, then upserts the metadata. The blob is
// written to a temp file and renamed so a crash never leaves a partial
// document behind.
func (s *Store) PutDocument(doc *models.Document, data []byte) error {
	if doc.ID == "" {
		return errors.New("storage: document id is required")
	}
	if err := writeAtomic(s.documentPath(doc.ID), data); err != nil {
		return fmt.Errorf("write document blob: %w", err)
	}
	if err := s.db.Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("store document metadata: %w", err)
	}
	return nil
}

// GetDocument loads one document's metadata.
func (s *Store) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get document metadata: %w", err)
	}
	return &doc, nil
}

// DocumentData loads one document's original bytes.
func (s *Store) DocumentData(id string) ([]byte, error) {
	data, err := os.ReadFile(s.documentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read document blob: %w", err)
	}
	return data, nil
}

// ListDocuments returns every stored document, oldest first.
func (s *Store) ListDocuments() ([]models.Document, error) {
	var docs []models.Document
	if err := s.db.Find(&docs, (&badgerhold.Query{}).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes metadata, blob and every font of the document.
func (s *Store) DeleteDocument(id string) error {
	if err := s.db.Delete(id, &models.Document{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if err := s.db.DeleteMatching(&models.FontRecord{}, badgerhold.Where("DocumentID").Eq(id)); err != nil {
		return fmt.Errorf("delete font metadata: %w", err)
	}
	if err := os.Remove(s.documentPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document blob: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(s.fontsDir, id)); err != nil {
		return fmt.Errorf("delete font blobs: %w", err)
	}
	return nil
}

// PutFont writes the font blob and upserts its record.
func (s *Store) PutFont(rec *models.FontRecord, data []byte) error {
	if rec.DocumentID == "" || rec.Name == "" {
		return errors.New("storage: font document id and name are required")
	}
	rec.Key = models.FontKey(rec.DocumentID, rec.Name)
	path := s.fontPath(rec.DocumentID, rec.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create font directory: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write font blob: %w", err)
	}
	if err := s.db.Upsert(rec.Key, rec); err != nil {
		return fmt.Errorf("store font metadata: %w", err)
	}
	return nil
}

// FontData loads one registered font's bytes.
func (s *Store) FontData(documentID, name string) ([]byte, error) {
	data, err := os.ReadFile(s.fontPath(documentID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("font %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read font blob: %w", err)
	}
	return data, nil
}

// ListFonts returns the fonts registered for one document.
func (s *Store) ListFonts(documentID string) ([]models.FontRecord, error) {
	var recs []models.FontRecord
	if err := s.db.Find(&recs, badgerhold.Where("DocumentID").Eq(documentID).SortBy("Name")); err != nil {
		return nil, fmt.Errorf("list fonts: %w", err)
	}
	return recs, nil
}

func (s *Store) documentPath(id string) string {
	return filepath.Join(s.docsDir, id+".pdf")
}

func (s *Store) fontPath(documentID, name string) string {
	return filepath.Join(s.fontsDir, documentID, safeName(name)+".font")
}

// safeName keeps font-derived filenames inside the fonts directory.
func safeName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '+' || r == '.':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
