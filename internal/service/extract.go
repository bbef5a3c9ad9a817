package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/studiahub/studiahub/internal/storage"
)

// defaultChunkChars bounds the size of a retrieval chunk. Sentences are never
// split; a chunk may exceed the bound by at most one sentence.
const defaultChunkChars = 1200

// minPrintableRun is the shortest run of printable bytes salvaged from a
// binary document.
const minPrintableRun = 16

// ExtractText pulls indexable text out of an uploaded document. Text formats
// are taken verbatim; binary formats (PDF, images, office documents) are
// scanned for embedded printable runs, which recovers uncompressed text
// streams without a format-specific parser.
func ExtractText(contentType string, data []byte) string {
	base := strings.ToLower(contentType)
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)

	if strings.HasPrefix(base, "text/") || base == "application/json" {
		return string(data)
	}
	return extractPrintable(data)
}

func extractPrintable(data []byte) string {
	var runs []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= minPrintableRun {
			runs = append(runs, current.String())
		}
		current.Reset()
	}

	for _, b := range data {
		if b == '\n' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			current.WriteByte(b)
		} else {
			flush()
		}
	}
	flush()

	return strings.Join(runs, "\n")
}

// The tokenizer is built once from the embedded English training data and
// shared; Tokenize itself is safe for concurrent use.
var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
	tokenizerErr  error
)

func sentenceTokenizer() (*sentences.DefaultSentenceTokenizer, error) {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = english.NewSentenceTokenizer(nil)
	})
	return tokenizer, tokenizerErr
}

// ChunkText splits text into retrieval chunks along sentence boundaries.
func ChunkText(text string, maxChars int) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	tok, err := sentenceTokenizer()
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	sents := tok.Tokenize(text)

	var chunks []string
	var current strings.Builder

	for _, sent := range sents {
		st := strings.TrimSpace(sent.Text)
		if st == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(st) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(st)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks, nil
}

func chunkBlobKey(key string) string {
	return key + ".chunks.json"
}

func writeChunks(store *storage.BlobStorage, key string, chunks []string) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	return store.Write(chunkBlobKey(key), data)
}

func readChunks(store *storage.BlobStorage, key string) ([]string, error) {
	data, err := store.Read(chunkBlobKey(key))
	if err != nil {
		return nil, err
	}
	var chunks []string
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("unmarshal chunks: %w", err)
	}
	return chunks, nil
}
