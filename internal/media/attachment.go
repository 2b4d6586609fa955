// Package media models user-selected files as scoped resources: a file is
// acquired on selection together with a temporary preview, and the preview is
// released when the selection is replaced, submitted or torn down.
package media

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"socialfeed/internal/models"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp" // Register BMP decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MaxImageBytes   = 10 << 20
	MaxVideoBytes   = 100 << 20
	PreviewMaxSize  = 256
	PreviewQuality  = 70
	sniffBufferSize = 512
)

// Attachment is a selected file plus its temporary preview. The zero value is not usable; call Open.
type Attachment struct {
	path        string
	name        string
	contentType string
	kind        models.MediaType
	size        int64
	width       int
	height      int

	mu          sync.Mutex
	previewPath string
	released    bool
}

// Open acquires path as an attachment. Images get a downscaled WebP preview
// written to a temp file; callers must Release the attachment when done.
func Open(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("cannot read %s", filepath.Base(path)))
	}
	if info.IsDir() {
		return nil, models.NewValidationError(fmt.Sprintf("%s is a directory", filepath.Base(path)))
	}
	if info.Size() == 0 {
		return nil, models.NewValidationError(fmt.Sprintf("%s is empty", filepath.Base(path)))
	}

	contentType, err := sniff(path)
	if err != nil {
		return nil, err
	}

	a := &Attachment{
		path:        path,
		name:        filepath.Base(path),
		contentType: contentType,
		size:        info.Size(),
	}

	switch {
	case strings.HasPrefix(contentType, "image/"):
		a.kind = models.MediaImage
		if a.size > MaxImageBytes {
			return nil, models.NewValidationError("image is larger than 10 MB")
		}
		if err := a.buildPreview(); err != nil {
			return nil, err
		}
	case strings.HasPrefix(contentType, "video/"):
		a.kind = models.MediaVideo
		if a.size > MaxVideoBytes {
			return nil, models.NewValidationError("video is larger than 100 MB")
		}
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unsupported media type %s", contentType))
	}

	return a, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", models.NewValidationError(fmt.Sprintf("cannot read %s", filepath.Base(path)))
	}
	defer f.Close()

	buf := make([]byte, sniffBufferSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", models.NewValidationError(fmt.Sprintf("cannot read %s", filepath.Base(path)))
	}

	contentType := http.DetectContentType(buf[:n])
	if contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
			contentType = byExt
		}
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType, nil
}

func (a *Attachment) buildPreview() error {
	f, err := os.Open(a.path)
	if err != nil {
		return models.NewValidationError(fmt.Sprintf("cannot read %s", a.name))
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return models.NewValidationError(fmt.Sprintf("%s is not a readable image", a.name))
	}
	bounds := src.Bounds()
	a.width, a.height = bounds.Dx(), bounds.Dy()

	w, h := fitWithin(a.width, a.height, PreviewMaxSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)

	out, err := os.CreateTemp("", "socialfeed-preview-*.webp")
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	if err := webp.Encode(out, dst, &webp.Options{Quality: PreviewQuality}); err != nil {
		out.Close()
		os.Remove(out.Name())
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return fmt.Errorf("close preview: %w", err)
	}

	a.previewPath = out.Name()
	return nil
}

// fitWithin scales w x h down so the longer side is at most limit, keeping aspect.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// Name returns the file's base name.
func (a *Attachment) Name() string { return a.name }

// ContentType returns the sniffed MIME type.
func (a *Attachment) ContentType() string { return a.contentType }

// Kind reports whether the attachment is an image or a video.
func (a *Attachment) Kind() models.MediaType { return a.kind }

// Size returns the file size in bytes.
func (a *Attachment) Size() int64 { return a.size }

// Dimensions returns the pixel size of an image attachment, zero for video.
func (a *Attachment) Dimensions() (int, int) { return a.width, a.height }

// PreviewPath returns the temporary preview file, or "" for video or once released.
func (a *Attachment) PreviewPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.previewPath
}

// Released reports whether Release has been called.
func (a *Attachment) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Reader opens the underlying file for upload.
func (a *Attachment) Reader() (io.ReadCloser, error) {
	if a.Released() {
		return nil, fmt.Errorf("attachment %s already released", a.name)
	}
	return os.Open(a.path)
}

// Release frees the preview. It is safe to call more than once.
func (a *Attachment) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	if a.previewPath == "" {
		return nil
	}
	path := a.previewPath
	a.previewPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}
