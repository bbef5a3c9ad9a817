package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText_TextTakenVerbatim(t *testing.T) {
	text := "Cells divide by mitosis.\nMeiosis produces gametes."
	assert.Equal(t, text, ExtractText("text/plain; charset=utf-8", []byte(text)))
	assert.Equal(t, text, ExtractText("text/markdown", []byte(text)))
	assert.Equal(t, text, ExtractText("application/json", []byte(text)))
}

func TestExtractText_BinarySalvagesPrintableRuns(t *testing.T) {
	var b []byte
	b = append(b, 0x00, 0x01, 0x02)
	b = append(b, []byte("This sentence is embedded inside a binary stream.")...)
	b = append(b, 0xff, 0xfe)
	b = append(b, []byte("short")...) // below the minimum run, dropped
	b = append(b, 0x00)

	got := ExtractText("application/pdf", b)
	assert.Contains(t, got, "embedded inside a binary stream")
	assert.NotContains(t, got, "short")
}

func TestChunkText_SplitsOnSentences(t *testing.T) {
	sentence := "The mitochondria is the powerhouse of the cell. "
	text := strings.Repeat(sentence, 10)

	chunks, err := ChunkText(text, 120)
	assert.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// A chunk may exceed the bound by at most one sentence.
		assert.LessOrEqual(t, len(chunk), 120+len(sentence))
		assert.NotEqual(t, "", strings.TrimSpace(chunk))
	}
}

func TestChunkText_KeepsAbbreviationsTogether(t *testing.T) {
	text := "Dr. Smith studied the U.S. economy for 20 years. The results were published in 2019."

	chunks, err := ChunkText(text, 1000)
	assert.NoError(t, err)
	if assert.Len(t, chunks, 1) {
		assert.Contains(t, chunks[0], "Dr. Smith")
		assert.Contains(t, chunks[0], "published in 2019")
	}
}

func TestChunkText_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n  "} {
		chunks, err := ChunkText(in, 100)
		assert.NoError(t, err)
		assert.Nil(t, chunks)
	}
}
