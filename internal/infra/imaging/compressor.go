package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode indicates the payload could not be decoded as an image.
var ErrDecode = errors.New("image decode failed")

// Bounds is the box an image must fit inside after compression.
type Bounds struct {
	Width  int
	Height int
}

var (
	// GeneralBounds is used for baseline size reduction on upload.
	GeneralBounds = Bounds{Width: 1920, Height: 1080}
	// ModelBounds is the aggressive pre-model box for quick scans.
	ModelBounds = Bounds{Width: 768, Height: 768}
)

// Quality presets for the JPEG encoder.
const (
	GeneralQuality = 85
	ModelQuality   = 60
)

// Compress decodes src, scales it down to fit bounds preserving aspect ratio,
// and re-encodes as JPEG. Lossless inputs (PNG, GIF) are converted so the
// output is always smaller than a raw bitmap. Images already inside the box
// are re-encoded without scaling. The returned MIME type is always
// "image/jpeg".
func Compress(src []byte, b Bounds, quality int) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dst := fit(img, b)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("jpeg encode: %w", err)
	}
	return out.Bytes(), "image/jpeg", nil
}

func fit(img image.Image, b Bounds) image.Image {
	sw := img.Bounds().Dx()
	sh := img.Bounds().Dy()
	if sw <= b.Width && sh <= b.Height {
		return img
	}

	scale := float64(b.Width) / float64(sw)
	if s := float64(b.Height) / float64(sh); s < scale {
		scale = s
	}
	dw := int(float64(sw) * scale)
	dh := int(float64(sh) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
