package meta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/franz/fav-janitor/internal/util"
	"golang.org/x/text/encoding/charmap"
)

// ErrNotPNG is returned by NewChunkReader when the stream lacks the PNG signature
var ErrNotPNG = errors.New("not a PNG stream")

// PNGSignature is the fixed 8-byte header of every PNG file
var PNGSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// maxInflatedBytes caps the decompressed size of a single zTXt/iTXt payload.
// Anything larger is treated as a malformed chunk.
const maxInflatedBytes = 32 * 1024 * 1024

const (
	chunkText  = "tEXt"
	chunkZText = "zTXt"
	chunkIText = "iTXt"
	chunkEnd   = "IEND"
)

// TextChunk is the decoded payload of one metadata-carrying chunk
type TextChunk struct {
	Type    string
	Keyword string
	Text    string
}

// ChunkReader walks the chunks of a PNG stream and yields decoded text chunks.
// It is single-pass: once Next reports false the reader is exhausted.
// CRCs are skipped, never verified.
type ChunkReader struct {
	r    io.ReadSeeker
	done bool
	err  error
}

// NewChunkReader verifies the PNG signature and positions the reader on the
// first chunk. It returns ErrNotPNG when the signature is absent or short.
func NewChunkReader(r io.ReadSeeker) (*ChunkReader, error) {
	sig := make([]byte, len(PNGSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, PNGSignature) {
		return nil, ErrNotPNG
	}
	return &ChunkReader{r: r}, nil
}

// Next returns the next text chunk that decodes successfully. Malformed text
// chunks are skipped. It reports false at IEND, at end of stream, on a
// truncated header or payload, or when seeking fails; Err tells them apart.
func (c *ChunkReader) Next() (TextChunk, bool) {
	var header [8]byte
	for !c.done {
		if _, err := io.ReadFull(c.r, header[:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				c.err = fmt.Errorf("%w: truncated chunk header", util.ErrMalformed)
			} else if err != io.EOF {
				c.err = err
			}
			c.done = true
			break
		}
		length := int64(binary.BigEndian.Uint32(header[:4]))
		chunkType := string(header[4:8])

		if chunkType == chunkEnd {
			c.done = true
			break
		}

		if !isTextChunk(chunkType) {
			if _, err := c.r.Seek(length+4, io.SeekCurrent); err != nil {
				c.done = true
			}
			continue
		}

		payload, err := io.ReadAll(io.LimitReader(c.r, length))
		if err != nil {
			c.err = err
			c.done = true
			break
		}
		if int64(len(payload)) != length {
			c.err = fmt.Errorf("%w: %s chunk truncated at %d of %d bytes",
				util.ErrMalformed, chunkType, len(payload), length)
			c.done = true
			break
		}
		if _, err := c.r.Seek(4, io.SeekCurrent); err != nil {
			c.done = true
		}

		chunk, err := decodeTextChunk(chunkType, payload)
		if err != nil {
			util.DebugLog("Skipping %s chunk: %v", chunkType, err)
			continue
		}
		return chunk, true
	}
	return TextChunk{}, false
}

// Err returns the reason iteration stopped early, or nil when the stream
// ended cleanly. Truncation errors wrap util.ErrMalformed.
func (c *ChunkReader) Err() error {
	return c.err
}

// ReadTextChunks drains a PNG stream into a slice of decoded text chunks.
// A truncated stream returns the chunks read so far along with the error.
func ReadTextChunks(r io.ReadSeeker) ([]TextChunk, error) {
	reader, err := NewChunkReader(r)
	if err != nil {
		return nil, err
	}

	var chunks []TextChunk
	for {
		chunk, ok := reader.Next()
		if !ok {
			return chunks, reader.Err()
		}
		chunks = append(chunks, chunk)
	}
}

func isTextChunk(chunkType string) bool {
	switch chunkType {
	case chunkText, chunkZText, chunkIText:
		return true
	}
	return false
}

// DecodeTextChunk decodes a tEXt, zTXt or iTXt payload. It reports false for
// other chunk types and for any structural or compression problem.
func DecodeTextChunk(chunkType string, data []byte) (TextChunk, bool) {
	chunk, err := decodeTextChunk(chunkType, data)
	return chunk, err == nil
}

func decodeTextChunk(chunkType string, data []byte) (TextChunk, error) {
	if !isTextChunk(chunkType) {
		return TextChunk{}, fmt.Errorf("%w: %q is not a text chunk", util.ErrMalformed, chunkType)
	}
	keyword, rest, found := bytes.Cut(data, []byte{0})
	if !found {
		return TextChunk{}, fmt.Errorf("%w: missing keyword separator", util.ErrMalformed)
	}
	chunk := TextChunk{Type: chunkType, Keyword: latin1(keyword)}

	switch chunkType {
	case chunkText:
		chunk.Text = latin1(rest)

	case chunkZText:
		if len(rest) == 0 || rest[0] != 0 {
			return TextChunk{}, fmt.Errorf("%w: unknown compression method", util.ErrMalformed)
		}
		text, err := inflate(rest[1:])
		if err != nil {
			return TextChunk{}, err
		}
		chunk.Text = latin1(text)

	case chunkIText:
		if len(rest) < 2 {
			return TextChunk{}, fmt.Errorf("%w: iTXt header too short", util.ErrMalformed)
		}
		compressed, method := rest[0], rest[1]
		if compressed > 1 || (compressed == 1 && method != 0) {
			return TextChunk{}, fmt.Errorf("%w: bad iTXt compression flag", util.ErrMalformed)
		}
		parts := bytes.SplitN(rest[2:], []byte{0}, 3)
		if len(parts) != 3 {
			return TextChunk{}, fmt.Errorf("%w: iTXt missing language or translated keyword", util.ErrMalformed)
		}
		text := parts[2]
		if compressed == 1 {
			inflated, err := inflate(text)
			if err != nil {
				return TextChunk{}, err
			}
			text = inflated
		}
		chunk.Text = strings.ToValidUTF8(string(text), "\uFFFD")
	}

	return chunk, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", util.ErrMalformed, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", util.ErrMalformed, err)
	}
	if len(out) > maxInflatedBytes {
		return nil, fmt.Errorf("%w: inflated payload exceeds %d bytes", util.ErrMalformed, maxInflatedBytes)
	}
	return out, nil
}

func latin1(b []byte) string {
	// ISO 8859-1 maps every byte, so decoding cannot fail
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
