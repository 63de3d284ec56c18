package rag

import (
	"strings"
	"unicode/utf8"

	"github.com/modelgate/modelgate/internal/httperr"
)

// defaultChunkCapacity is the target chunk size in characters when the
// ingest request does not set one.
const defaultChunkCapacity = 512

// txtSeparators split plain text along paragraph, line, sentence, and
// finally word boundaries.
var txtSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// mdSeparators try heading boundaries first so markdown sections stay
// whole where the capacity allows.
var mdSeparators = []string{"\n# ", "\n## ", "\n### ", "\n\n", "\n", ". ", " ", ""}

// chunkText splits a document into chunks of at most capacity characters.
// docType selects the splitting strategy: "txt" (the default) or "md".
func chunkText(text, docType string, capacity int) ([]string, error) {
	if capacity <= 0 {
		capacity = defaultChunkCapacity
	}

	var separators []string
	switch strings.ToLower(docType) {
	case "", "txt":
		separators = txtSeparators
	case "md":
		separators = mdSeparators
	default:
		return nil, httperr.BadRequest("Only files with 'txt' and 'md' extensions are supported.")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, httperr.BadRequest("Found empty document text")
	}
	if utf8.RuneCountInString(text) <= capacity {
		return []string{text}, nil
	}
	return split(text, separators, capacity), nil
}

// split breaks text on the first separator that produces segments, then
// packs the segments back into chunks of at most capacity characters.
// Segments still over capacity recurse onto the finer separators.
func split(text string, separators []string, capacity int) []string {
	var segments []string
	var sep string
	for i, s := range separators {
		if s == "" {
			return splitRunes(text, capacity)
		}
		if parts := strings.Split(text, s); len(parts) > 1 {
			sep = s
			for _, part := range parts {
				if utf8.RuneCountInString(part) > capacity {
					segments = append(segments, split(part, separators[i+1:], capacity)...)
				} else {
					segments = append(segments, part)
				}
			}
			break
		}
	}
	if segments == nil {
		return splitRunes(text, capacity)
	}

	var chunks []string
	var current strings.Builder
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		joined := seg
		if current.Len() > 0 {
			joined = current.String() + sep + seg
		}
		if utf8.RuneCountInString(joined) > capacity && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(seg)
		} else {
			current.Reset()
			current.WriteString(joined)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitRunes(text string, n int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += n {
		end := min(i+n, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}
