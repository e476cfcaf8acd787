package cardimages

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

const jpegQuality = 90

// prepareImage декодирует картинку, при необходимости уменьшает до maxWidth
// и переворачивает на 180° для перевёрнутой карты. Результат всегда jpeg.
func prepareImage(raw []byte, reversed bool, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = downscale(img, maxWidth)

	if reversed {
		b := img.Bounds()
		dc := gg.NewContext(b.Dx(), b.Dy())
		dc.RotateAbout(gg.Radians(180), float64(b.Dx())/2, float64(b.Dy())/2)
		dc.DrawImage(img, -b.Min.X, -b.Min.Y)
		img = dc.Image()
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

func downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
