// Package imagefile inspects locally configured background images.
package imagefile

import (
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Info holds the metadata of an image file.
type Info struct {
	Format string
	Width  int
	Height int
}

// Probe decodes the header of the image file at path. Only the image
// configuration is read, not the pixel data.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close() //nolint:errcheck

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("decode config: %w", err)
	}

	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
