package editor

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/geo"
	"github.com/RodrigoAbrao/editor-pdf/internal/common"
	"github.com/RodrigoAbrao/editor-pdf/internal/storage"
	"github.com/RodrigoAbrao/editor-pdf/overlay"
)

func testService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := common.Default()
	cfg.Storage.Badger.Path = filepath.Join(dir, "db")
	cfg.Storage.Filesystem.Documents = filepath.Join(dir, "docs")
	cfg.Storage.Filesystem.Fonts = filepath.Join(dir, "fonts")

	store, err := storage.Open(&cfg.Storage, &log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, cfg, &log.DefaultLogger), store
}

func letterDoc(t *testing.T) []byte {
	t.Helper()
	gen := fpdf.New("P", "pt", "Letter", "")
	gen.AddPage()
	gen.SetFont("Helvetica", "", 11)
	gen.Text(100, 713, "Hello World")
	var buf bytes.Buffer
	require.NoError(t, gen.Output(&buf))
	return buf.Bytes()
}

func TestUploadStoresMetadata(t *testing.T) {
	svc, _ := testService(t)

	data := letterDoc(t)
	doc, err := svc.Upload(context.Background(), "letter.pdf", data)
	require.NoError(t, err)

	assert.Equal(t, common.DocumentID(data), doc.ID)
	assert.Equal(t, "letter.pdf", doc.Filename)
	assert.Equal(t, 1, doc.PageCount)
	require.Len(t, doc.Pages, 1)
	assert.InDelta(t, 612, doc.Pages[0].Width, 1)
	assert.InDelta(t, 792, doc.Pages[0].Height, 1)

	stored, err := svc.DocumentData(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Upload(context.Background(), "junk.pdf", []byte("not a pdf at all"))
	assert.Error(t, err)
}

func TestPageTextFindsSpan(t *testing.T) {
	svc, _ := testService(t)
	doc, err := svc.Upload(context.Background(), "letter.pdf", letterDoc(t))
	require.NoError(t, err)

	pt, ok, err := svc.PageText(context.Background(), doc.ID, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 612, pt.Width, 1)

	var found bool
	for _, span := range pt.Spans {
		if span.Text == "Hello World" {
			found = true
		}
	}
	assert.True(t, found, "expected the rendered span in the text layer")
}

func TestPageTextOutOfRange(t *testing.T) {
	svc, _ := testService(t)
	doc, err := svc.Upload(context.Background(), "letter.pdf", letterDoc(t))
	require.NoError(t, err)

	_, _, err = svc.PageText(context.Background(), doc.ID, 5)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, _, err = svc.PageText(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRegisterFontAndList(t *testing.T) {
	svc, _ := testService(t)
	doc, err := svc.Upload(context.Background(), "letter.pdf", letterDoc(t))
	require.NoError(t, err)

	rec, err := svc.RegisterFont(doc.ID, "Roboto-Regular", goregular.TTF)
	require.NoError(t, err)
	assert.Equal(t, "Roboto-Regular", rec.Name)
	assert.Equal(t, doc.ID, rec.DocumentID)

	fonts, err := svc.Fonts(doc.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(fonts))
	for _, f := range fonts {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Roboto-Regular")
	assert.Contains(t, names, "Helvetica")

	data, err := svc.FontData(doc.ID, "Roboto-Regular")
	require.NoError(t, err)
	assert.Equal(t, []byte(goregular.TTF), data)
}

func TestRegistrySurvivesRestart(t *testing.T) {
	svc, store := testService(t)
	doc, err := svc.Upload(context.Background(), "letter.pdf", letterDoc(t))
	require.NoError(t, err)
	_, err = svc.RegisterFont(doc.ID, "Roboto-Regular", goregular.TTF)
	require.NoError(t, err)

	// A fresh service over the same store rebuilds its registry from
	// the persisted font records.
	fresh := New(store, common.Default(), &log.DefaultLogger)
	res := fresh.registry(doc.ID).Resolve("Roboto-Regular")
	assert.Equal(t, fontkit.MatchExact, res.Match)
}

func TestExportAppliesEdit(t *testing.T) {
	svc, _ := testService(t)
	original := letterDoc(t)
	doc, err := svc.Upload(context.Background(), "letter.pdf", original)
	require.NoError(t, err)
	_, err = svc.RegisterFont(doc.ID, "Roboto-Regular", goregular.TTF)
	require.NoError(t, err)

	edits := []overlay.EditOperation{{
		Page:         0,
		Rect:         geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718},
		OriginalText: "Hello World",
		NewText:      "Bonjour Monde",
		Font:         "Roboto-Regular",
		FontSize:     11,
		Color:        "#000000",
	}}
	result, err := svc.Export(context.Background(), doc.ID, edits)
	require.NoError(t, err)

	require.Len(t, result.Audits, 1)
	assert.Equal(t, fontkit.MatchExact, result.Audits[0].FontMatch)
	assert.True(t, bytes.HasPrefix(result.Bytes, original), "export appends incrementally")
	assert.Greater(t, len(result.Bytes), len(original))
}

func TestExportMissingDocument(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Export(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
