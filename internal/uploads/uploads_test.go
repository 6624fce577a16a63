package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/apperr"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type recordedUpload struct {
	bytes   int64
	success bool
	reason  string
}

type fakeRecorder struct {
	calls []recordedUpload
}

func (f *fakeRecorder) RecordUpload(bytes int64, _ time.Duration, success bool, reason string) {
	f.calls = append(f.calls, recordedUpload{bytes: bytes, success: success, reason: reason})
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", "Tower"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	if content != nil {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("part.Write: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}
	return body, writer.FormDataContentType()
}

func newUploadRouter(u *Uploader, captured *Image) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			appErr := apperr.From(c.Errors.Last().Err)
			c.JSON(appErr.Status(), gin.H{"message": appErr.Message})
		}
	})
	router.POST("/upload", u.SingleImage("image"), func(c *gin.Context) {
		image, _ := FromContext(c)
		*captured = image
		c.JSON(http.StatusCreated, gin.H{"title": c.PostForm("title")})
	})
	return router
}

func imageFiles(t *testing.T, u *Uploader) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(u.ImagesDir())
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("ReadDir: %v", err)
	}
	return entries
}

func TestSingleImageStoresPNGUnderGeneratedName(t *testing.T) {
	recorder := &fakeRecorder{}
	u := New(t.TempDir(), 500000, recorder)
	var captured Image
	router := newUploadRouter(u, &captured)

	body, contentType := multipartBody(t, "image", "my holiday.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.HasPrefix(captured.Ref, RefPrefix+"/") || !strings.HasSuffix(captured.Ref, ".png") {
		t.Fatalf("unexpected ref %q", captured.Ref)
	}
	if strings.Contains(captured.Ref, "holiday") {
		t.Fatalf("original filename must be discarded, got %q", captured.Ref)
	}
	if _, err := os.Stat(captured.DiskPath); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if u.DiskPath(captured.Ref) != captured.DiskPath {
		t.Fatalf("DiskPath(%q) = %q, want %q", captured.Ref, u.DiskPath(captured.Ref), captured.DiskPath)
	}
	if len(recorder.calls) != 1 || !recorder.calls[0].success || recorder.calls[0].bytes != int64(len(pngHeader)) {
		t.Fatalf("unexpected recorder calls: %+v", recorder.calls)
	}
}

func TestSingleImageRejectsUnsupportedType(t *testing.T) {
	recorder := &fakeRecorder{}
	u := New(t.TempDir(), 500000, recorder)
	var captured Image
	router := newUploadRouter(u, &captured)

	body, contentType := multipartBody(t, "image", "fake.png", []byte("just some text, not an image at all"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Invalid mime type!") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if files := imageFiles(t, u); len(files) != 0 {
		t.Fatalf("expected nothing stored, found %d files", len(files))
	}
	if len(recorder.calls) != 1 || recorder.calls[0].reason != "unsupported_mime" {
		t.Fatalf("unexpected recorder calls: %+v", recorder.calls)
	}
}

func TestSingleImageRejectsOversizedFile(t *testing.T) {
	u := New(t.TempDir(), 64, nil)
	var captured Image
	router := newUploadRouter(u, &captured)

	content := append(append([]byte{}, pngHeader...), make([]byte, 128)...)
	body, contentType := multipartBody(t, "image", "big.png", content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	if files := imageFiles(t, u); len(files) != 0 {
		t.Fatalf("expected nothing stored, found %d files", len(files))
	}
}

func TestSingleImageRequiresFile(t *testing.T) {
	u := New(t.TempDir(), 500000, nil)
	var captured Image
	router := newUploadRouter(u, &captured)

	body, contentType := multipartBody(t, "image", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestRemoveIgnoresMissingAndForeignRefs(t *testing.T) {
	dir := t.TempDir()
	u := New(dir, 500000, nil)

	outside := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := u.Remove(RefPrefix + "/missing.png"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	if err := u.Remove(RefPrefix + "/../keep.txt"); err != nil {
		t.Fatalf("Remove foreign: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside images dir must survive: %v", err)
	}
}
