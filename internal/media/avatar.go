// Package media turns uploaded images into square PNG avatars.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	AvatarContentType = "image/png"

	// DefaultMaxPixels bounds width*height of an upload before it is decoded.
	DefaultMaxPixels = 24_000_000
)

// ErrUnsupportedImage is returned when the upload cannot be decoded or its
// declared dimensions exceed the pixel budget.
var ErrUnsupportedImage = errors.New("unsupported image")

// ResizeAvatar decodes data, center-crops it to a size x size square and
// re-encodes it as PNG. The header is checked against maxPixels first; a
// non-positive maxPixels uses DefaultMaxPixels.
func ResizeAvatar(data []byte, size, maxPixels int) ([]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid avatar size %d", size)
	}
	if maxPixels < 1 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.Width > maxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
