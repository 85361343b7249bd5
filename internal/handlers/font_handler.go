package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/phuslu/log"

	"github.com/RodrigoAbrao/editor-pdf/internal/services/editor"
)

// maxFontSize caps font uploads at 10 MB.
const maxFontSize = 10 << 20

type FontHandler struct {
	editor *editor.Service
	logger *log.Logger
}

func NewFontHandler(editor *editor.Service, logger *log.Logger) *FontHandler {
	return &FontHandler{editor: editor, logger: logger}
}

// ListHandler returns the document's resolvable fonts.
func (h *FontHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	fonts, err := h.editor.Fonts(r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"fonts": fonts})
}

// UploadHandler registers a TTF or OTF font under the "file" field. The
// logical name comes from the "name" form value, defaulting to the
// filename without its extension.
func (h *FontHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFontSize)
	if err := r.ParseMultipartForm(maxFontSize); err != nil {
		WriteError(w, http.StatusBadRequest, "upload too large or malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	lowerName := strings.ToLower(header.Filename)
	if !strings.HasSuffix(lowerName, ".ttf") && !strings.HasSuffix(lowerName, ".otf") {
		WriteError(w, http.StatusBadRequest, "only TTF and OTF fonts are supported")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, header.Filename[strings.LastIndex(header.Filename, "."):])
	}
	rec, err := h.editor.RegisterFont(r.PathValue("id"), name, data)
	if err != nil {
		h.logger.Warn().Str("font", name).Err(err).Msg("font upload rejected")
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

// DownloadHandler streams a registered font's bytes.
func (h *FontHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.editor.FontData(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "font/ttf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
