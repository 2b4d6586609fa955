package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"socialfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func writeMP4(t *testing.T, dir string) string {
	t.Helper()
	header := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, append(header, make([]byte, 64)...), 0o600))
	return path
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestOpen_ImageBuildsPreview(t *testing.T) {
	path := writePNG(t, t.TempDir(), "avatar.png", 800, 400)

	a, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, models.MediaImage, a.Kind())
	assert.Equal(t, "image/png", a.ContentType())
	assert.Equal(t, "avatar.png", a.Name())
	w, h := a.Dimensions()
	assert.Equal(t, 800, w)
	assert.Equal(t, 400, h)

	preview := a.PreviewPath()
	require.NotEmpty(t, preview)
	_, err = os.Stat(preview)
	require.NoError(t, err)

	require.NoError(t, a.Release())
	_, err = os.Stat(preview)
	assert.True(t, os.IsNotExist(err), "release removes the preview")
	assert.Empty(t, a.PreviewPath())
	assert.NoError(t, a.Release(), "release is idempotent")

	_, err = a.Reader()
	assert.Error(t, err, "released attachments cannot be uploaded")
}

func TestOpen_Video(t *testing.T) {
	a, err := Open(writeMP4(t, t.TempDir()))
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, models.MediaVideo, a.Kind())
	assert.Equal(t, "video/mp4", a.ContentType())
	assert.Empty(t, a.PreviewPath())

	r, err := a.Reader()
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestOpen_Rejects(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("just words"), 0o600))
	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("\x89PNG\r\n\x1a\ngarbage"), 0o600))

	for _, path := range []string{text, empty, broken, dir, filepath.Join(dir, "missing.png")} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := Open(path)
			assertValidationError(t, err)
		})
	}
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(100, 50, 256)
	assert.Equal(t, [2]int{100, 50}, [2]int{w, h})
	w, h = fitWithin(1024, 512, 256)
	assert.Equal(t, [2]int{256, 128}, [2]int{w, h})
	w, h = fitWithin(10, 5000, 256)
	assert.Equal(t, [2]int{1, 256}, [2]int{w, h})
}

func TestSlot_ReleasesOnReplaceAndClose(t *testing.T) {
	dir := t.TempDir()
	var slot Slot

	first, err := slot.Select(writePNG(t, dir, "a.png", 40, 40))
	require.NoError(t, err)
	firstPreview := first.PreviewPath()

	second, err := slot.Select(writePNG(t, dir, "b.png", 40, 40))
	require.NoError(t, err)
	assert.True(t, first.Released())
	_, err = os.Stat(firstPreview)
	assert.True(t, os.IsNotExist(err))
	assert.Same(t, second, slot.Current())

	_, err = slot.Select(filepath.Join(dir, "missing.png"))
	assertValidationError(t, err)
	assert.Same(t, second, slot.Current(), "failed selection keeps the previous file")

	require.NoError(t, slot.Close())
	assert.True(t, second.Released())
	assert.Nil(t, slot.Current())
}
