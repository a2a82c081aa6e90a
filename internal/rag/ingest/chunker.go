package ingest

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/domain/commonModels"
	"github.com/google/uuid"
)

// chunkNamespace seeds the name based chunk ids so that rebuilding the same corpus
// yields the same ids.
var chunkNamespace = uuid.MustParse("6f1c2b0e-5d3a-4c8e-9b7a-2e4f1d0c9a83")

type Chunker struct {
	size    int
	overlap int
}

type ChunkerOption func(*Chunker)

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) { c.size = size }
}

// WithOverlap sets how many runes adjacent chunks share.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) { c.overlap = overlap }
}

func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{size: config.ChunkSize, overlap: config.ChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size < 1 {
		c.size = config.ChunkSize
	}
	if c.overlap < 0 {
		c.overlap = 0
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits a document into ordered, overlapping chunks. A document without any
// non-whitespace text yields no chunks.
func (c *Chunker) Chunk(doc commonModels.Document) []commonModels.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	text := []rune(doc.Text)
	spans := c.split(text)
	chunks := make([]commonModels.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, commonModels.Chunk{
			Id:         ChunkID(doc.Id, i),
			DocumentId: doc.Id,
			Index:      i,
			Start:      s.start,
			End:        s.end,
			Text:       string(text[s.start:s.end]),
			Metadata:   doc.Metadata,
		})
	}
	return chunks
}

// ChunkAll chunks every document in order.
func (c *Chunker) ChunkAll(docs []commonModels.Document) []commonModels.Chunk {
	var all []commonModels.Chunk
	for _, doc := range docs {
		all = append(all, c.Chunk(doc)...)
	}
	return all
}

func ChunkID(documentId string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentId+"#"+strconv.Itoa(index))).String()
}

type span struct {
	start int
	end   int
}

// split walks the text window by window. Every cut lands strictly after
// start+overlap so the next window always moves forward, and the next window
// starts exactly overlap runes before the cut.
func (c *Chunker) split(text []rune) []span {
	var spans []span
	start := 0
	for {
		limit := start + c.size
		if limit >= len(text) {
			return append(spans, span{start: start, end: len(text)})
		}
		end := c.boundary(text, start, limit)
		spans = append(spans, span{start: start, end: end})
		start = end - c.overlap
	}
}

type breakFunc func(text []rune, pos int) bool

// boundaries are tried best first.
var boundaries = []breakFunc{paragraphBreak, sentenceBreak, lineBreak, wordBreak}

// boundary picks a cut position in the upper half of the window, falling back to a
// hard cut at limit when the window has no natural break.
func (c *Chunker) boundary(text []rune, start, limit int) int {
	floor := start + c.size/2
	if minCut := start + c.overlap + 1; floor < minCut {
		floor = minCut
	}
	for _, isBreak := range boundaries {
		for pos := limit; pos >= floor; pos-- {
			if isBreak(text, pos) {
				return pos
			}
		}
	}
	return limit
}

func paragraphBreak(text []rune, pos int) bool {
	return pos >= 2 && text[pos-1] == '\n' && text[pos-2] == '\n'
}

func sentenceBreak(text []rune, pos int) bool {
	return pos >= 2 && unicode.IsSpace(text[pos-1]) && strings.ContainsRune(".!?", text[pos-2])
}

func lineBreak(text []rune, pos int) bool {
	return pos >= 1 && text[pos-1] == '\n'
}

func wordBreak(text []rune, pos int) bool {
	return pos >= 1 && unicode.IsSpace(text[pos-1])
}
