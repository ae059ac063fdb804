// ABOUTME: Bounded-chunk audio input for the streaming loop
// ABOUTME: Streams raw PCM files directly and decodes mp3 inputs to PCM
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// File reads audio in chunks truncated to whole frames.
type File struct {
	r             io.Reader
	closer        io.Closer
	bytesPerFrame int
}

// Open opens path for streaming. Files with an .mp3 extension are decoded to
// 16-bit little-endian stereo PCM; anything else streams as raw PCM.
func Open(path string, bytesPerFrame int) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		dec, err := mp3.NewDecoder(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		r = dec
	}

	return &File{r: r, closer: f, bytesPerFrame: bytesPerFrame}, nil
}

// NewReader wraps an arbitrary reader of raw PCM.
func NewReader(r io.Reader, bytesPerFrame int) *File {
	return &File{r: r, bytesPerFrame: bytesPerFrame}
}

// ReadChunk returns at most max bytes, truncated to a whole number of
// frames. It reports io.EOF once the input is drained; a trailing partial
// frame is dropped.
func (s *File) ReadChunk(max int) ([]byte, error) {
	max -= max % s.bytesPerFrame
	if max <= 0 {
		return nil, fmt.Errorf("chunk size smaller than one frame")
	}

	buf := make([]byte, max)
	n, err := io.ReadFull(s.r, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	n -= n % s.bytesPerFrame
	if n == 0 {
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	if err == io.EOF {
		// Deliver the final short chunk; the next call reports EOF.
		return buf[:n], nil
	}
	return buf[:n], err
}

// Close releases the underlying file, if any.
func (s *File) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
