// Package meta extracts embedded generation metadata from image files: it
// finds the first JSON object stored in PNG text chunks or, for other
// formats, anywhere in the leading bytes of the file.
package meta

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/fav-janitor/internal/util"
)

// MaxScanBytes bounds how much of a non-PNG file is scanned for JSON
const MaxScanBytes = 5 * 1024 * 1024

var errTrailingData = errors.New("trailing data after JSON value")

// Extracted is the result of running the extraction pipeline on one file.
// Found is false when no JSON object was located; JSON is then empty.
type Extracted struct {
	JSON  string
	Found bool
	Fields
}

// ExtractFromPath reads the file at path and extracts its metadata.
// PNG files are walked chunk by chunk; a file named .png that lacks the PNG
// signature, and every other file, gets a raw scan of its first MaxScanBytes.
// The returned error wraps util.ErrNotFound when the file cannot be opened.
func ExtractFromPath(path string) (*Extracted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", util.ErrNotFound, path, err)
	}
	defer f.Close()

	var (
		jsonText string
		found    bool
	)

	if strings.EqualFold(filepath.Ext(path), ".png") {
		jsonText, found, err = ExtractJSONFromPNG(f)
		if errors.Is(err, ErrNotPNG) {
			util.DebugLog("%s has a .png name but no PNG signature, scanning raw bytes", path)
			if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
				return nil, fmt.Errorf("rewind %s: %w", path, seekErr)
			}
			jsonText, found, err = ExtractJSONFromReader(f)
		}
	} else {
		jsonText, found, err = ExtractJSONFromReader(f)
	}
	if err != nil {
		return nil, err
	}

	result := &Extracted{JSON: jsonText, Found: found}
	if found {
		result.Fields = ExtractFields(jsonText)
	}
	return result, nil
}

// ExtractJSONFromPNG returns the first JSON object found in the text chunks
// of a PNG stream. It returns ErrNotPNG when the signature is missing.
func ExtractJSONFromPNG(r io.ReadSeeker) (string, bool, error) {
	reader, err := NewChunkReader(r)
	if err != nil {
		return "", false, err
	}

	for {
		chunk, ok := reader.Next()
		if !ok {
			// A damaged stream still yields whatever came before the damage
			if err := reader.Err(); err != nil {
				util.DebugLog("PNG chunk scan stopped early: %v", err)
			}
			return "", false, nil
		}
		if chunk.Text == "" {
			continue
		}
		if jsonText, ok := FindFirstJSONObject(chunk.Text); ok {
			util.DebugLog("found JSON in %s chunk %q", chunk.Type, chunk.Keyword)
			return jsonText, true, nil
		}
	}
}

// ExtractJSONFromReader scans at most MaxScanBytes of r for a JSON object
func ExtractJSONFromReader(r io.Reader) (string, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxScanBytes))
	if err != nil {
		return "", false, fmt.Errorf("read: %w", err)
	}
	jsonText, found := ExtractJSONFromBytes(data)
	return jsonText, found, nil
}

// ExtractJSONFromBytes decodes the first MaxScanBytes of data as UTF-8,
// replacing invalid sequences, and returns the first JSON object in it.
func ExtractJSONFromBytes(data []byte) (string, bool) {
	if len(data) > MaxScanBytes {
		data = data[:MaxScanBytes]
	}
	return FindFirstJSONObject(strings.ToValidUTF8(string(data), "\uFFFD"))
}
