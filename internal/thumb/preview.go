package thumb

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxEdge caps the longest side of a generated preview.
const maxEdge = 128

// Preview decodes image bytes, downscales to at most maxEdge on the longest
// side, and returns a JPEG data URI ready for display.
func Preview(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode preview: %w", err)
	}

	bounds := img.Bounds()
	thumb := scale(img, bounds.Dx(), bounds.Dy())

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// scale performs nearest-neighbor downscaling to fit within maxEdge.
func scale(img image.Image, origW, origH int) image.Image {
	if origW <= maxEdge && origH <= maxEdge {
		return img
	}
	ratio := min(float64(maxEdge)/float64(origW), float64(maxEdge)/float64(origH))
	w := max(int(float64(origW)*ratio), 1)
	h := max(int(float64(origH)*ratio), 1)

	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := src.Min.Y + y*src.Dy()/h
		for x := 0; x < w; x++ {
			srcX := src.Min.X + x*src.Dx()/w
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// IsImageData checks magic bytes to detect images even when the declared
// MIME type or extension is wrong.
func IsImageData(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return true
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return true
	}
	// GIF: GIF8
	if string(data[:4]) == "GIF8" {
		return true
	}
	// TIFF: II*\0 or MM\0*
	if (data[0] == 'I' && data[1] == 'I' && data[2] == 0x2a && data[3] == 0x00) ||
		(data[0] == 'M' && data[1] == 'M' && data[2] == 0x00 && data[3] == 0x2a) {
		return true
	}
	// WEBP: RIFF....WEBP
	if len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return true
	}
	// BMP: BM
	return data[0] == 'B' && data[1] == 'M'
}
