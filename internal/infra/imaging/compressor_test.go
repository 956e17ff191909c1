package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressFitsBounds(t *testing.T) {
	src := makePNG(t, 200, 100)

	out, mime, err := Compress(src, Bounds{Width: 50, Height: 50}, 80)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	// aspect ratio preserved: 200x100 into a 50x50 box becomes 50x25
	assert.Equal(t, 50, decoded.Bounds().Dx())
	assert.Equal(t, 25, decoded.Bounds().Dy())
}

func TestCompressConvertsLosslessWithoutScaling(t *testing.T) {
	src := makePNG(t, 30, 20)

	out, mime, err := Compress(src, GeneralBounds, GeneralQuality)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 30, decoded.Bounds().Dx())
	assert.Equal(t, 20, decoded.Bounds().Dy())
}

func TestCompressDecodeError(t *testing.T) {
	_, _, err := Compress([]byte("definitely not an image"), ModelBounds, ModelQuality)
	assert.ErrorIs(t, err, ErrDecode)
}
