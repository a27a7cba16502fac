package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResize_PNG(t *testing.T) {
	src := encodePNG(t, 1000, 400)
	for _, w := range Widths {
		out, err := Resize(src, w)
		require.NoError(t, err)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, w, cfg.Width)
		assert.Equal(t, 400*w/1000, cfg.Height)
	}
}

func TestResize_KeepsJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 600, 600))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	out, err := Resize(buf.Bytes(), 100)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
}

func TestResize_NotAnImage(t *testing.T) {
	_, err := Resize([]byte("hello world"), 100)
	require.Error(t, err)
}

func TestDerivativePath(t *testing.T) {
	assert.Equal(t, "/tmp/files_manager/abc_500", DerivativePath("/tmp/files_manager/abc", 500))
}

func TestValidWidth(t *testing.T) {
	for _, w := range []int{500, 250, 100} {
		assert.True(t, ValidWidth(w))
	}
	for _, w := range []int{0, 50, 200, 1000, -100} {
		assert.False(t, ValidWidth(w))
	}
}
