package models

import (
	"time"

	"github.com/RodrigoAbrao/editor-pdf/overlay"
)

// PageDim is one page's size in points.
type PageDim struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is the stored metadata of one uploaded PDF. The bytes
// themselves live on the filesystem keyed by ID.
type Document struct {
	ID        string    `badgerhold:"key" json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	PageCount int       `json:"pageCount"`
	Pages     []PageDim `json:"pages"`
	CreatedAt time.Time `json:"createdAt"`
}

// FontRecord is the stored metadata of one registered font.
type FontRecord struct {
	Key        string    `badgerhold:"key" json:"-"` // documentID + "/" + name
	DocumentID string    `badgerholdIndex:"DocumentID" json:"-"`
	Name       string    `json:"name"`
	Family     string    `json:"family,omitempty"`
	Size       int64     `json:"size"`
	Embedded   bool      `json:"embedded"` // harvested from the document itself
	CreatedAt  time.Time `json:"createdAt"`
}

// FontKey builds the storage key of a font record.
func FontKey(documentID, name string) string {
	return documentID + "/" + name
}

// ExportRequest is the POST body of an export call.
type ExportRequest struct {
	Edits []overlay.EditOperation `json:"edits" validate:"dive"`
}
