package splitter

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1500
	// DefaultChunkOverlap is the minimum number of runes shared by adjacent chunks.
	DefaultChunkOverlap = 200
)

// DefaultSeparators prefers paragraph, then line, sentence and word boundaries.
// The empty separator falls back to fixed-width cuts.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ErrInvalidConfig is returned when the chunk size and overlap cannot be satisfied.
var ErrInvalidConfig = errors.New("splitter: chunk overlap must be non-negative and smaller than chunk size")

// Recursive splits text into chunks of at most ChunkSize runes where every
// chunk except the last shares at least ChunkOverlap runes with its successor.
//
// Text is first cut into atoms no longer than (ChunkSize-ChunkOverlap)/2 runes,
// trying each separator in order and keeping the separator attached to the
// preceding piece. Atoms are then packed greedily into chunks, and each new
// chunk restarts at the last atom boundary that leaves ChunkOverlap runes of
// shared text.
type Recursive struct {
	separators   []string
	chunkSize    int
	chunkOverlap int
}

var _ textsplitter.TextSplitter = (*Recursive)(nil)

// Option configures a Recursive splitter.
type Option func(*Recursive)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(s *Recursive) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap in runes.
func WithChunkOverlap(overlap int) Option {
	return func(s *Recursive) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators replaces the separator preference list.
func WithSeparators(separators []string) Option {
	return func(s *Recursive) {
		s.separators = separators
	}
}

// NewRecursive creates a splitter with the 1500/200 defaults.
func NewRecursive(opts ...Option) *Recursive {
	s := &Recursive{
		separators:   DefaultSeparators,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChunkSize returns the configured chunk size.
func (s *Recursive) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured overlap.
func (s *Recursive) ChunkOverlap() int { return s.chunkOverlap }

// SplitText implements textsplitter.TextSplitter.
func (s *Recursive) SplitText(text string) ([]string, error) {
	runes := []rune(text)
	spans, err := s.spans(runes)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, string(runes[sp[0]:sp[1]]))
	}
	return chunks, nil
}

// SplitDocuments splits each document and copies its metadata into every
// chunk, adding "chunk_index" and "chunk_total".
func (s *Recursive) SplitDocuments(docs []schema.Document) ([]schema.Document, error) {
	var chunks []schema.Document
	for _, doc := range docs {
		texts, err := s.SplitText(doc.PageContent)
		if err != nil {
			return nil, err
		}
		for i, text := range texts {
			metadata := make(map[string]any, len(doc.Metadata)+2)
			maps.Copy(metadata, doc.Metadata)
			metadata["chunk_index"] = i
			metadata["chunk_total"] = len(texts)

			chunks = append(chunks, schema.Document{
				PageContent: text,
				Metadata:    metadata,
			})
		}
	}
	return chunks, nil
}

// spans returns [start, end) rune offsets of each chunk.
func (s *Recursive) spans(runes []rune) ([][2]int, error) {
	if s.chunkSize <= 0 || s.chunkOverlap < 0 || s.chunkOverlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidConfig, s.chunkSize, s.chunkOverlap)
	}
	if strings.TrimSpace(string(runes)) == "" {
		return nil, nil
	}
	n := len(runes)
	if n <= s.chunkSize {
		return [][2]int{{0, n}}, nil
	}

	atom := max((s.chunkSize-s.chunkOverlap)/2, 1)
	bounds := []int{0}
	s.cut(runes, 0, n, atom, s.separators, &bounds)

	var out [][2]int
	i := 0
	for {
		j := i
		for j+1 < len(bounds) && bounds[j+1]-bounds[i] <= s.chunkSize {
			j++
		}
		out = append(out, [2]int{bounds[i], bounds[j]})
		if bounds[j] == n {
			return out, nil
		}
		next := i + 1
		for k := j; k > i; k-- {
			if bounds[k] <= bounds[j]-s.chunkOverlap {
				next = k
				break
			}
		}
		i = next
	}
}

// cut appends atom end offsets for runes[start:end] to bounds.
func (s *Recursive) cut(runes []rune, start, end, atom int, separators []string, bounds *[]int) {
	if end-start <= atom {
		*bounds = append(*bounds, end)
		return
	}
	if len(separators) == 0 || separators[0] == "" {
		for p := start + atom; ; p += atom {
			if p >= end {
				*bounds = append(*bounds, end)
				return
			}
			*bounds = append(*bounds, p)
		}
	}

	sep := []rune(separators[0])
	rest := separators[1:]
	pieceStart := start
	for p := start; p+len(sep) <= end; p++ {
		if !hasPrefixAt(runes, p, sep) {
			continue
		}
		pieceEnd := p + len(sep)
		s.cut(runes, pieceStart, pieceEnd, atom, rest, bounds)
		pieceStart = pieceEnd
		p = pieceEnd - 1
	}
	if pieceStart < end {
		s.cut(runes, pieceStart, end, atom, rest, bounds)
	}
}

func hasPrefixAt(runes []rune, at int, prefix []rune) bool {
	for i, r := range prefix {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}
