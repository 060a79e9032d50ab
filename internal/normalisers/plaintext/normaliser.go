// Package plaintext provides a normaliser for plain text uploads.
package plaintext

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"text/yaml",
		"text/toml",
		"application/json",
		"application/xml",
	}
}

// Normalise converts raw bytes to text content. Invalid UTF-8 sequences
// are replaced with the replacement rune so downstream chunking always
// operates on valid text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawUpload) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}

	data := bytes.TrimPrefix(raw.Data, []byte{0xEF, 0xBB, 0xBF}) // strip UTF-8 BOM
	if utf8.Valid(data) {
		return string(data), nil
	}
	return string(bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))), nil
}
