package ctf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"

	"github.com/kajott/crocket/internal/track"
)

// SaveCompressedFile brotli-compresses a freshly encoded CTF image and
// writes it to path. This is an on-disk convenience layered outside the
// wire-exact codec above: the bytes brotli compresses are exactly what
// Encode produces, so a byte-exact image is always recoverable via
// LoadCompressedFile. Long demo projects with thousands of keyframes
// compress well; short ones aren't worth the CPU, so callers with a tight
// save-on-every-keystroke loop should prefer writing Encode's output
// directly.
func SaveCompressedFile(path string, reg *track.Registry) error {
	raw := Encode(reg)
	var compressed bytes.Buffer
	w := brotli.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("ctf: brotli compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("ctf: brotli compress: %w", err)
	}
	if err := os.WriteFile(path, compressed.Bytes(), 0o644); err != nil {
		return fmt.Errorf("ctf: write %s: %w", path, err)
	}
	return nil
}

// LoadCompressedFile reads and brotli-decompresses path, then decodes the
// recovered CTF image into reg using the same rules as Decode (signature
// mismatch is silently ignored).
func LoadCompressedFile(path string, reg *track.Registry) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ctf: read %s: %w", path, err)
	}
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return fmt.Errorf("ctf: brotli decompress %s: %w", path, err)
	}
	Decode(raw, reg)
	return nil
}
