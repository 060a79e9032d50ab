// Package chunker provides a fixed-window text segmentation processor.
package chunker

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultMaxChars is the default window size in characters.
const DefaultMaxChars = 800

// Processor splits document text into fixed-size, non-overlapping windows.
// It implements the PostProcessor interface.
type Processor struct {
	maxChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the window size in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxChars returns the configured window size.
func (p *Processor) MaxChars() int {
	return p.maxChars
}

// Segment splits text into trimmed fixed-size windows.
//
// Windows are computed over raw character offsets: each window covers
// maxChars characters of input and the next window starts maxChars
// later, regardless of how much the trim removed. A window that trims
// to nothing is dropped but still consumes its span, so the chunk count
// can be less than ceil(len/maxChars). Windows never overlap and their
// order matches the original text order.
func (p *Processor) Segment(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += p.maxChars {
		end := start + p.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			out = append(out, window)
		}
	}
	return out
}

// Process splits the text into chunks with 0-based positions.
func (p *Processor) Process(_ context.Context, documentID, text string) ([]domain.Chunk, error) {
	segments := p.Segment(text)
	if len(segments) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(segments))
	for i, content := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Content:    content,
			Position:   i,
		})
	}
	return chunks, nil
}
