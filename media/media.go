// Package media stores uploaded product and category pictures.
package media

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image format, only PNG, JPG and JPEG are allowed")
	ErrCorruptImage     = errors.New("failed to decode image")
)

type Storage struct {
	dir      string
	urlPath  string
	maxWidth uint
}

// NewStorage creates the upload directory when missing.
func NewStorage(dir, urlPath string, maxWidth uint) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Storage{dir: dir, urlPath: strings.TrimRight(urlPath, "/"), maxWidth: maxWidth}, nil
}

func (s *Storage) Dir() string {
	return s.dir
}

// Save decodes the upload, shrinks it to the maximum width and writes it as a
// JPEG under a fresh name. It returns the public URL of the file.
func (s *Storage) Save(r io.Reader, filename string) (string, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return "", ErrUnsupportedImage
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	if s.maxWidth > 0 && uint(img.Bounds().Dx()) > s.maxWidth {
		img = resize.Resize(s.maxWidth, 0, img, resize.Lanczos3)
	}

	name := uuid.New().String() + ".jpg"
	out, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("error saving image file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("error encoding image: %w", err)
	}
	return path.Join(s.urlPath, name), nil
}
