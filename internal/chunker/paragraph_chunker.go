package chunker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docqa:chunk"))

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// ParagraphChunker splits text on paragraph boundaries first and then on
// sentence boundaries inside each paragraph.
//
// Abbreviations such as "Mr." end a sentence; the split does not attempt
// linguistic correctness.
type ParagraphChunker struct{}

func NewParagraphChunker() *ParagraphChunker { return &ParagraphChunker{} }

// Chunk splits text and assigns IDs derived from the document ID and the
// chunk ordinal, so re-chunking the same document yields the same IDs.
func (c *ParagraphChunker) Chunk(documentID, text string) []domain.Chunk {
	pieces := Split(text)
	if len(pieces) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{
			ID:         ChunkID(documentID, i),
			DocumentID: documentID,
			Text:       p,
			Ordinal:    i,
		}
	}
	return chunks
}

// ChunkID returns the stable identifier of the chunk at ordinal in documentID.
func ChunkID(documentID string, ordinal int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+":"+strconv.Itoa(ordinal))).String()
}

// Split returns the trimmed, non-empty pieces of text. Empty or
// whitespace-only input yields no pieces.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		for _, s := range splitSentences(para) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// splitSentences cuts after a run of terminal punctuation (plus closing
// quotes or brackets) that is followed by whitespace. "3.14" stays whole.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminal(r) {
			continue
		}
		for i < len(text) {
			next, n := utf8.DecodeRuneInString(text[i:])
			if !isTerminal(next) && !isCloser(next) {
				break
			}
			i += n
		}
		if i == len(text) {
			break
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(next) {
			out = append(out, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
