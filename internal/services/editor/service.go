// Package editor is the domain service behind the HTTP surface: it
// owns per-document font registries and drives extraction and export
// over stored documents.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/RodrigoAbrao/editor-pdf/export"
	"github.com/RodrigoAbrao/editor-pdf/extractor"
	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/internal/common"
	"github.com/RodrigoAbrao/editor-pdf/internal/models"
	"github.com/RodrigoAbrao/editor-pdf/internal/storage"
	"github.com/RodrigoAbrao/editor-pdf/overlay"
	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// ErrPageOutOfRange reports a page index outside the document.
var ErrPageOutOfRange = errors.New("editor: page out of range")

// Service wires storage, font registries and the export pipeline.
type Service struct {
	store  *storage.Store
	logger *log.Logger
	cfg    export.Config

	mu         sync.Mutex
	registries map[string]*fontkit.Registry
}

// New builds the service with the overlay tuning from config.
func New(store *storage.Store, cfg *common.Config, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		cfg: export.Config{
			Layout: overlay.Config{
				Step:       cfg.Overlay.AutoFitStep,
				Floor:      cfg.Overlay.MinFontSize,
				Background: cfg.Overlay.Background,
			},
			Tolerance: cfg.Overlay.MatchTolerance,
		},
		registries: make(map[string]*fontkit.Registry),
	}
}

// Upload validates and persists a document, computes its page
// dimensions and harvests any embedded font programs into the
// document's registry.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	if err := storage.ValidatePDF(data); err != nil {
		return nil, err
	}
	doc, err := pdf.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("walk pages: %w", err)
	}

	record := &models.Document{
		ID:        common.DocumentID(data),
		Filename:  filename,
		Size:      int64(len(data)),
		PageCount: len(pages),
		CreatedAt: time.Now().UTC(),
	}
	for _, p := range pages {
		record.Pages = append(record.Pages, models.PageDim{Width: p.Width, Height: p.Height})
	}
	if err := s.store.PutDocument(record, data); err != nil {
		return nil, err
	}

	s.harvestFonts(record.ID, doc)

	s.logger.Info().
		Str("id", record.ID).
		Str("filename", filename).
		Int("pages", record.PageCount).
		Msg("document uploaded")
	return record, nil
}

// harvestFonts registers font programs embedded in the document.
// Best-effort: a program the font loader rejects is skipped.
func (s *Service) harvestFonts(id string, doc *pdf.Document) {
	ex, err := extractor.New(doc)
	if err != nil {
		return
	}
	reg := s.registry(id)
	for _, emb := range ex.EmbeddedFonts() {
		font, err := reg.Register(emb.Name, emb.Data)
		if err != nil {
			s.logger.Debug().Str("font", emb.Name).Err(err).Msg("skipping embedded font")
			continue
		}
		rec := &models.FontRecord{
			DocumentID: id,
			Name:       emb.Name,
			Family:     font.Family,
			Size:       int64(len(emb.Data)),
			Embedded:   true,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.store.PutFont(rec, emb.Data); err != nil {
			s.logger.Warn().Str("font", emb.Name).Err(err).Msg("persisting embedded font failed")
		}
	}
}

// registry returns the document's font registry, rebuilding it from
// persisted fonts after a restart.
func (s *Service) registry(id string) *fontkit.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.registries[id]; ok {
		return reg
	}
	reg := fontkit.NewRegistry()
	recs, err := s.store.ListFonts(id)
	if err == nil {
		for _, rec := range recs {
			data, err := s.store.FontData(id, rec.Name)
			if err != nil {
				continue
			}
			if _, err := reg.Register(rec.Name, data); err != nil {
				s.logger.Warn().Str("font", rec.Name).Err(err).Msg("stored font no longer loads")
			}
		}
	}
	s.registries[id] = reg
	return reg
}

// Document returns stored metadata.
func (s *Service) Document(id string) (*models.Document, error) {
	return s.store.GetDocument(id)
}

// DocumentData returns the original bytes.
func (s *Service) DocumentData(id string) ([]byte, error) {
	return s.store.DocumentData(id)
}

// Documents lists all stored documents.
func (s *Service) Documents() ([]models.Document, error) {
	return s.store.ListDocuments()
}

// PageText extracts the spans of one page. A page whose text layer
// cannot be decoded degrades to empty spans with ok=false; the
// document and page index must still be valid.
func (s *Service) PageText(ctx context.Context, id string, page int) (extractor.PageText, bool, error) {
	record, err := s.store.GetDocument(id)
	if err != nil {
		return extractor.PageText{}, false, err
	}
	if page < 0 || page >= record.PageCount {
		return extractor.PageText{}, false, fmt.Errorf("page %d of %d: %w", page, record.PageCount, ErrPageOutOfRange)
	}
	data, err := s.store.DocumentData(id)
	if err != nil {
		return extractor.PageText{}, false, err
	}
	doc, err := pdf.Parse(data)
	if err != nil {
		return extractor.PageText{}, false, fmt.Errorf("parse pdf: %w", err)
	}
	ex, err := extractor.New(doc)
	if err != nil {
		return extractor.PageText{}, false, fmt.Errorf("walk pages: %w", err)
	}
	pt, err := ex.Page(ctx, page)
	if err != nil {
		var xerr *extractor.ExtractionError
		if errors.As(err, &xerr) {
			s.logger.Warn().Str("id", id).Int("page", page).Err(err).Msg("page has no readable text layer")
			return pt, false, nil
		}
		return extractor.PageText{}, false, err
	}
	return pt, true, nil
}

// RegisterFont loads and persists an uploaded font for the document.
func (s *Service) RegisterFont(id, name string, data []byte) (*models.FontRecord, error) {
	if _, err := s.store.GetDocument(id); err != nil {
		return nil, err
	}
	font, err := s.registry(id).Register(name, data)
	if err != nil {
		return nil, err
	}
	rec := &models.FontRecord{
		DocumentID: id,
		Name:       font.Name,
		Family:     font.Family,
		Size:       int64(len(data)),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.PutFont(rec, data); err != nil {
		return nil, err
	}
	s.logger.Info().Str("id", id).Str("font", font.Name).Msg("font registered")
	return rec, nil
}

// Fonts lists the resolvable fonts of a document, fallback included.
func (s *Service) Fonts(id string) ([]fontkit.Info, error) {
	if _, err := s.store.GetDocument(id); err != nil {
		return nil, err
	}
	return s.registry(id).List(), nil
}

// FontData returns a registered font's bytes.
func (s *Service) FontData(id, name string) ([]byte, error) {
	return s.store.FontData(id, name)
}

// Export runs the overlay pipeline over the stored document.
func (s *Service) Export(ctx context.Context, id string, edits []overlay.EditOperation) (*export.Result, error) {
	data, err := s.store.DocumentData(id)
	if err != nil {
		return nil, err
	}
	pipeline := export.New(s.registry(id), s.cfg)
	result, err := pipeline.Export(ctx, data, edits)
	if err != nil {
		return nil, err
	}
	for _, page := range result.Degraded {
		s.logger.Warn().Str("id", id).Int("page", page).Msg("export proceeded without a text layer")
	}
	s.logger.Info().
		Str("id", id).
		Int("edits", len(result.Audits)).
		Int("bytes", len(result.Bytes)).
		Msg("document exported")
	return result, nil
}
