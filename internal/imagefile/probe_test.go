package imagefile_test

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"git.netflux.io/rob/backdrop/internal/imagefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, name string, encode func(io.Writer, image.Image) error) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, encode(f, img))
	require.NoError(t, f.Close())

	return path
}

func TestProbe(t *testing.T) {
	testCases := []struct {
		name   string
		path   string
		want   imagefile.Info
		errMsg string
	}{
		{
			name: "png",
			path: writeImage(t, "a.png", png.Encode),
			want: imagefile.Info{Format: "png", Width: 4, Height: 3},
		},
		{
			name: "bmp",
			path: writeImage(t, "b.bmp", bmp.Encode),
			want: imagefile.Info{Format: "bmp", Width: 4, Height: 3},
		},
		{
			name:   "missing file",
			path:   filepath.Join(t.TempDir(), "nope.png"),
			errMsg: "open: ",
		},
		{
			name: "unknown format",
			path: func() string {
				path := filepath.Join(t.TempDir(), "notes.txt")
				require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))
				return path
			}(),
			errMsg: "decode config: image: unknown format",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := imagefile.Probe(tc.path)
			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, info)
		})
	}
}
