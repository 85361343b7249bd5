package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/phuslu/log"

	"github.com/RodrigoAbrao/editor-pdf/internal/services/editor"
)

// maxUploadSize caps document uploads at 50 MB.
const maxUploadSize = 50 << 20

type DocumentHandler struct {
	editor *editor.Service
	logger *log.Logger
}

func NewDocumentHandler(editor *editor.Service, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{editor: editor, logger: logger}
}

// UploadHandler accepts a multipart PDF upload under the "file" field.
func (h *DocumentHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "upload too large or malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "reading upload failed")
		return
	}
	if ext := filepath.Ext(header.Filename); ext != ".pdf" && ext != ".PDF" {
		WriteError(w, http.StatusBadRequest, "only PDF uploads are supported")
		return
	}

	doc, err := h.editor.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.logger.Warn().Str("filename", header.Filename).Err(err).Msg("upload rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, doc)
}

// ListHandler returns every stored document.
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.editor.Documents()
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// GetHandler returns one document's metadata.
func (h *DocumentHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.Document(r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// FileHandler streams the original document bytes.
func (h *DocumentHandler) FileHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.editor.DocumentData(r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// PageTextHandler returns the positioned spans of one page. A page
// whose text layer is unreadable still answers 200, with empty spans
// and a marker the UI can surface.
func (h *DocumentHandler) PageTextHandler(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	pt, ok, err := h.editor.PageText(r.Context(), r.PathValue("id"), page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	resp := map[string]interface{}{
		"page":   pt.Page,
		"width":  pt.Width,
		"height": pt.Height,
		"spans":  pt.Spans,
	}
	if !ok {
		resp["textLayer"] = "unavailable"
	}
	WriteJSON(w, http.StatusOK, resp)
}
