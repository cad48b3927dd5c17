// Package imagehash computes difference-hash fingerprints from card scans.
// A dHash is built from pairwise luminance comparisons of a downsampled
// image, so two photographs of the same card land within a small Hamming
// distance of each other while distinct cards do not.
package imagehash

import (
	"fmt"
	"image"
	"io"
	"strings"

	// Registered decoders for the asset formats served by the CDN.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultSize is the edge length of the comparison grid. The resulting
// fingerprint carries Size*Size bits.
const DefaultSize = 8

// DecodeError reports input that could not be decoded as a supported raster
// format. It is surfaced to the caller and never retried.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("imagehash: decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Hasher computes fixed-length dHash fingerprints.
type Hasher struct {
	size int
}

// New returns a Hasher with the given grid size. Sizes below 2 fall back to
// DefaultSize.
func New(size int) Hasher {
	if size < 2 {
		size = DefaultSize
	}
	return Hasher{size: size}
}

// Size reports the comparison grid edge length.
func (h Hasher) Size() int {
	return h.size
}

// DecodeAndHash decodes a raster image from r and fingerprints it.
func (h Hasher) DecodeAndHash(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	return h.Hash(img), nil
}

// Hash computes the hex-encoded fingerprint of a decoded image. The result
// is a pure function of the pixel data: identical buffers always produce
// identical fingerprints.
func (h Hasher) Hash(img image.Image) string {
	n := h.size
	cells := downsampleLuminance(img, n+1, n)

	bits := make([]byte, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if cells[y][x] < cells[y][x+1] {
				bits = append(bits, 1)
			} else {
				bits = append(bits, 0)
			}
		}
	}

	return packBits(bits)
}

// downsampleLuminance area-averages the source image into a cols×rows grid
// of BT.601 luminance values.
func downsampleLuminance(img image.Image, cols, rows int) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	cells := make([][]float64, rows)
	for cy := 0; cy < rows; cy++ {
		cells[cy] = make([]float64, cols)
		y0 := bounds.Min.Y + cy*height/rows
		y1 := bounds.Min.Y + (cy+1)*height/rows
		if y1 <= y0 {
			y1 = y0 + 1
		}

		for cx := 0; cx < cols; cx++ {
			x0 := bounds.Min.X + cx*width/cols
			x1 := bounds.Min.X + (cx+1)*width/cols
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					sum += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
				}
			}
			cells[cy][cx] = sum / float64((y1-y0)*(x1-x0))
		}
	}

	return cells
}

// packBits packs a bit slice into lowercase hex nibbles, most significant
// bit first.
func packBits(bits []byte) string {
	const hexdigits = "0123456789abcdef"

	var sb strings.Builder
	sb.Grow((len(bits) + 3) / 4)

	for i := 0; i < len(bits); i += 4 {
		nibble := 0
		for j := 0; j < 4 && i+j < len(bits); j++ {
			nibble = nibble<<1 | int(bits[i+j])
		}
		sb.WriteByte(hexdigits[nibble])
	}

	return sb.String()
}
