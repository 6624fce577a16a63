// Package uploads receives single image uploads, stores them under a
// generated name and tracks the stored file on the request context so a
// failed request can remove it again.
package uploads

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
)

const (
	contextKey = "uploaded_image"

	// RefPrefix is the leading segment of every stored image reference and
	// the URL prefix the files are served under.
	RefPrefix = "uploads/images"

	imagesSubdir = "images"
	sniffBytes   = 512
	// Room for the text fields sent next to the image.
	formOverheadBytes = 64 << 10
)

var supportedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

var (
	errImageRequired = apperr.Validation("An image is required.")
	errInvalidMime   = apperr.Validation("Invalid mime type!")
	errImageTooLarge = apperr.Validation("Image is too large.")
)

// Recorder receives one call per upload attempt.
type Recorder interface {
	RecordUpload(bytes int64, duration time.Duration, success bool, reason string)
}

// Image describes a stored upload.
type Image struct {
	Ref      string
	DiskPath string
	Size     int64
	MimeType string
}

type Uploader struct {
	dir      string
	maxBytes int64
	recorder Recorder
}

func New(dir string, maxBytes int64, recorder Recorder) *Uploader {
	return &Uploader{dir: dir, maxBytes: maxBytes, recorder: recorder}
}

// ImagesDir is the directory holding stored images.
func (u *Uploader) ImagesDir() string {
	return filepath.Join(u.dir, imagesSubdir)
}

// DiskPath resolves a stored reference to its file. References outside the
// images directory resolve to "".
func (u *Uploader) DiskPath(ref string) string {
	name := strings.TrimPrefix(ref, RefPrefix+"/")
	if name == ref || name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return ""
	}
	return filepath.Join(u.ImagesDir(), name)
}

// Remove deletes the file behind ref. A missing file is not an error.
func (u *Uploader) Remove(ref string) error {
	diskPath := u.DiskPath(ref)
	if diskPath == "" {
		return nil
	}
	if err := os.Remove(diskPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FromContext returns the image stored for the current request.
func FromContext(c *gin.Context) (Image, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return Image{}, false
	}
	image, ok := value.(Image)
	return image, ok
}

// SetContext records image as the upload of the current request.
func SetContext(c *gin.Context, image Image) {
	c.Set(contextKey, image)
}

// SingleImage stores the multipart file in field and records it on the
// context. Validation failures abort the chain with a 422.
func (u *Uploader) SingleImage(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		storedBytes := int64(0)
		failureReason := ""
		defer func() {
			if u.recorder != nil {
				u.recorder.RecordUpload(storedBytes, time.Since(startedAt), failureReason == "", failureReason)
			}
		}()

		fail := func(reason string, err error) {
			failureReason = reason
			_ = c.Error(err)
			c.Abort()
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, u.maxBytes+formOverheadBytes)

		file, header, err := c.Request.FormFile(field)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				fail("file_too_large", errImageTooLarge)
				return
			}
			fail("file_missing", errImageRequired)
			return
		}
		defer file.Close()

		if header.Size > u.maxBytes {
			fail("file_too_large", errImageTooLarge)
			return
		}

		buffer := make([]byte, sniffBytes)
		bytesRead, err := io.ReadFull(file, buffer)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			if errors.Is(err, io.EOF) {
				fail("file_empty", errImageRequired)
				return
			}
			fail("file_read_error", apperr.Wrap(apperr.KindValidation, "Error reading image.", err))
			return
		}

		mimeType := normalizeMimeType(mimetype.Detect(buffer[:bytesRead]).String())
		ext, ok := supportedImageTypes[mimeType]
		if !ok {
			fail("unsupported_mime", errInvalidMime)
			return
		}

		if err := os.MkdirAll(u.ImagesDir(), 0o755); err != nil {
			fail("upload_dir_error", apperr.Internal("Could not store image.", err))
			return
		}

		name := uuid.NewString() + "." + ext
		diskPath := filepath.Join(u.ImagesDir(), name)
		out, err := os.OpenFile(diskPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			fail("file_create_error", apperr.Internal("Could not store image.", err))
			return
		}

		written, err := io.Copy(out, io.LimitReader(io.MultiReader(bytes.NewReader(buffer[:bytesRead]), file), u.maxBytes+1))
		closeErr := out.Close()
		switch {
		case err != nil:
			_ = os.Remove(diskPath)
			fail("file_write_error", apperr.Internal("Could not store image.", err))
			return
		case closeErr != nil:
			_ = os.Remove(diskPath)
			fail("file_finalize_error", apperr.Internal("Could not store image.", closeErr))
			return
		case written > u.maxBytes:
			_ = os.Remove(diskPath)
			fail("file_too_large", errImageTooLarge)
			return
		}

		storedBytes = written
		SetContext(c, Image{
			Ref:      path.Join(RefPrefix, name),
			DiskPath: diskPath,
			Size:     written,
			MimeType: mimeType,
		})
		slog.Debug("image stored", "path", diskPath, "bytes", written, "mime", mimeType)

		c.Next()
	}
}

func normalizeMimeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return normalized
}
