package recognition

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

const (
	DefaultMaxImageBytes = 10 * 1024 * 1024
	DefaultMaxWidth      = 1600
	DefaultJPEGQuality   = 85
)

var (
	ErrInvalidImage  = errors.New("Please upload an image file")
	ErrImageTooLarge = errors.New("Image must be less than 10MB")
	ErrEmptyImage    = errors.New("Image file is empty")
)

// Limits bounds uploaded photos and controls how they are shrunk before
// being sent for recognition.
type Limits struct {
	MaxBytes    int64
	MaxWidth    int
	JPEGQuality int
}

func (l Limits) withDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxImageBytes
	}
	if l.MaxWidth <= 0 {
		l.MaxWidth = DefaultMaxWidth
	}
	if l.JPEGQuality <= 0 || l.JPEGQuality > 100 {
		l.JPEGQuality = DefaultJPEGQuality
	}
	return l
}

// Image is a validated photo ready to be sent to the model.
type Image struct {
	Data      []byte
	MediaType string
}

// DataURL returns the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ValidateImage checks the declared content type and size of an upload.
func ValidateImage(contentType string, size int64, limits Limits) error {
	limits = limits.withDefaults()
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return ErrInvalidImage
	}
	if size <= 0 {
		return ErrEmptyImage
	}
	if size > limits.MaxBytes {
		return ErrImageTooLarge
	}
	return nil
}

// sendableTypes are forwarded as-is when no resize is needed.
var sendableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PrepareImage sniffs and decodes data. Photos wider than MaxWidth, and
// formats the model does not accept, are re-encoded as JPEG.
func PrepareImage(contentType string, data []byte, limits Limits) (Image, error) {
	limits = limits.withDefaults()
	if err := ValidateImage(contentType, int64(len(data)), limits); err != nil {
		return Image{}, err
	}

	detected := mimetype.Detect(data)
	mediaType := detected.String()
	if !strings.HasPrefix(mediaType, "image/") {
		return Image{}, ErrInvalidImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if img.Bounds().Dx() <= limits.MaxWidth && sendableTypes[mediaType] {
		return Image{Data: data, MediaType: mediaType}, nil
	}

	if img.Bounds().Dx() > limits.MaxWidth {
		img = imaging.Resize(img, limits.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(limits.JPEGQuality)); err != nil {
		return Image{}, fmt.Errorf("encode image: %w", err)
	}
	return Image{Data: buf.Bytes(), MediaType: "image/jpeg"}, nil
}
