package storage

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ValidatePDF checks that an upload is a structurally sound PDF before
// anything is persisted.
func ValidatePDF(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("unreadable pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	return nil
}
