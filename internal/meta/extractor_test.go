package meta

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/fav-janitor/internal/util"
)

const workflowJSON = `{"3":{"inputs":{"ckpt_name":"model.safetensors","sampler_name":"euler"}}}`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestExtractFromPathPNG(t *testing.T) {
	tmpDir := t.TempDir()
	png := buildPNG(
		buildChunk(chunkText, textPayload("parameters", "no json here")),
		buildChunk(chunkText, textPayload("prompt", workflowJSON)),
	)
	path := writeFile(t, tmpDir, "img_001.png", png)

	result, err := ExtractFromPath(path)
	if err != nil {
		t.Fatalf("ExtractFromPath failed: %v", err)
	}
	if !result.Found {
		t.Fatal("expected JSON to be found")
	}
	if !strings.Contains(result.JSON, "\n  \"3\": {") {
		t.Errorf("expected indented JSON, got %q", result.JSON)
	}
	if result.CkptName != "model.safetensors" {
		t.Errorf("CkptName = %q", result.CkptName)
	}
	if len(result.SamplerNames) != 1 || result.SamplerNames[0] != "euler" {
		t.Errorf("SamplerNames = %v", result.SamplerNames)
	}
}

func TestExtractFromPathPNGWithoutJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plain.png", buildPNG(buildChunk(chunkText, textPayload("Software", "none"))))

	result, err := ExtractFromPath(path)
	if err != nil {
		t.Fatalf("ExtractFromPath failed: %v", err)
	}
	if result.Found || result.JSON != "" {
		t.Errorf("expected nothing found, got %#v", result)
	}
}

func TestExtractFromPathRawBytes(t *testing.T) {
	data := append([]byte("\xff\xd8\xff\xe1 exif \x00\x01"), []byte("UserComment "+workflowJSON+" \xff\xd9")...)
	path := writeFile(t, t.TempDir(), "img_002.jpg", data)

	result, err := ExtractFromPath(path)
	if err != nil {
		t.Fatalf("ExtractFromPath failed: %v", err)
	}
	if !result.Found || result.CkptName != "model.safetensors" {
		t.Errorf("unexpected result %#v", result)
	}
}

func TestExtractFromPathMisnamedPNG(t *testing.T) {
	path := writeFile(t, t.TempDir(), "really_a_jpeg.png", []byte("JFIF "+workflowJSON))

	result, err := ExtractFromPath(path)
	if err != nil {
		t.Fatalf("ExtractFromPath failed: %v", err)
	}
	if !result.Found {
		t.Error("expected raw-byte fallback to find JSON")
	}
}

func TestExtractFromPathMissing(t *testing.T) {
	_, err := ExtractFromPath(filepath.Join(t.TempDir(), "gone.png"))
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractJSONFromBytesRespectsScanLimit(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, MaxScanBytes)
	data = append(data, []byte(`{"late": true}`)...)

	if _, found := ExtractJSONFromBytes(data); found {
		t.Error("JSON beyond the scan limit should not be found")
	}

	var buf bytes.Buffer
	buf.Write(data)
	if _, found, err := ExtractJSONFromReader(&buf); err != nil || found {
		t.Errorf("reader scan: found=%v err=%v, expected nothing", found, err)
	}
}
