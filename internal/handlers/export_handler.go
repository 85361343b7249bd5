package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"

	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/internal/models"
	"github.com/RodrigoAbrao/editor-pdf/internal/services/editor"
)

type ExportHandler struct {
	editor   *editor.Service
	validate *validator.Validate
	logger   *log.Logger
}

func NewExportHandler(editor *editor.Service, logger *log.Logger) *ExportHandler {
	return &ExportHandler{
		editor:   editor,
		validate: validator.New(),
		logger:   logger,
	}
}

// ExportHandler applies the submitted edits and answers with the final
// PDF bytes as an attachment.
func (h *ExportHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	id := r.PathValue("id")
	result, err := h.editor.Export(r.Context(), id, req.Edits)
	if err != nil {
		h.logger.Warn().Str("id", id).Err(err).Msg("export failed")
		WriteDomainError(w, err)
		return
	}
	for _, audit := range result.Audits {
		if audit.FontMatch == fontkit.MatchFallback {
			h.logger.Info().
				Str("id", id).
				Str("font", audit.Edit.Font).
				Msg("edit rendered with the fallback font")
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="edited.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Bytes)))
	w.Write(result.Bytes)
}
