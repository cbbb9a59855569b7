// =============================================================================
// RPS Batch Decoder - Upload Intake
// =============================================================================
//
// Intake turns raw uploaded bytes into the text the decoder reads, and
// fingerprints them for idempotent import.
//
// ENCODINGS:
//   Municipal systems export single-byte Latin text. "auto" keeps valid UTF-8
//   (minus a BOM) and decodes anything else as Windows-1252, a superset of
//   ISO-8859-1 for printable characters. Every single-byte character becomes
//   one rune, so field offsets stay aligned with the original file.
//
// HASHING:
//   ContentHash is taken over the raw bytes, before normalisation, so the same
//   upload always yields the same hash whatever encoding setting is active.
//
// =============================================================================

package intake

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnknownEncoding is returned for an encoding name Normalize does not know.
var ErrUnknownEncoding = errors.New("unknown character encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Upload is one file handed to the decoder.
type Upload struct {
	// Filename is the original base name.
	Filename string

	// Content is the normalised text.
	Content string

	// Hash is the hex SHA-256 of the raw bytes.
	Hash string

	// Size is the raw size in bytes.
	Size int
}

// Normalize converts raw to text.
//
// PARAMETERS:
//   - raw: The uploaded bytes.
//   - encoding: "auto", "UTF-8", "ISO-8859-1" (alias "latin1") or
//     "Windows-1252" (alias "cp1252"). Empty means auto.
//
// RETURNS:
//   - The text.
//   - ErrUnknownEncoding for an unsupported name, or a decode error.
func Normalize(raw []byte, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "auto":
		if utf8.Valid(raw) {
			return string(bytes.TrimPrefix(raw, utf8BOM)), nil
		}
		return decode(charmap.Windows1252, raw)
	case "utf-8", "utf8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("content is not valid UTF-8")
		}
		return string(bytes.TrimPrefix(raw, utf8BOM)), nil
	case "iso-8859-1", "latin1", "latin-1":
		return decode(charmap.ISO8859_1, raw)
	case "windows-1252", "cp1252":
		return decode(charmap.Windows1252, raw)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
}

func decode(cm *charmap.Charmap, raw []byte) (string, error) {
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", cm, err)
	}
	return string(out), nil
}

// ContentHash returns the hex SHA-256 of raw.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Read builds an Upload from r.
func Read(r io.Reader, filename, encoding string) (*Upload, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	content, err := Normalize(raw, encoding)
	if err != nil {
		return nil, err
	}
	return &Upload{
		Filename: filepath.Base(filename),
		Content:  content,
		Hash:     ContentHash(raw),
		Size:     len(raw),
	}, nil
}

// ReadFile builds an Upload from a file on disk.
func ReadFile(path, encoding string) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path, encoding)
}
