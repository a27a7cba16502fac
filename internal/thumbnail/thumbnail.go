// Package thumbnail produces the width-bounded derivatives of uploaded images.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Widths lists every derivative produced per image, largest first.
var Widths = []int{500, 250, 100}

// ValidWidth reports whether w names a derivative that can exist.
func ValidWidth(w int) bool {
	for _, candidate := range Widths {
		if candidate == w {
			return true
		}
	}
	return false
}

// DerivativePath returns where the derivative of width w is stored.
func DerivativePath(path string, w int) string {
	return fmt.Sprintf("%s_%d", path, w)
}

// Resize scales data to width w keeping the aspect ratio and re-encodes it in
// the source format. Formats imaging cannot encode fall back to PNG.
func Resize(data []byte, w int) ([]byte, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("detect image format: %w", err)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		format = imaging.PNG
	}
	dst := imaging.Resize(src, w, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, format); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
