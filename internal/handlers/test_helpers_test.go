package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/database"
	"github.com/ncruz89/share-space-app-backend/internal/middleware"
	"github.com/ncruz89/share-space-app-backend/internal/models"
	"github.com/ncruz89/share-space-app-backend/internal/uploads"
	"github.com/ncruz89/share-space-app-backend/internal/utils"
)

const testJWTSecret = "share_places_test_jwt_secret_key_1234567890"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupMockDB(t *testing.T) (*database.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return database.NewStore(db), mock, cleanup
}

func newTestTokens(t *testing.T) *utils.TokenService {
	t.Helper()
	tokens, err := utils.NewTokenService(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

func newTestUploader(t *testing.T) *uploads.Uploader {
	t.Helper()
	return uploads.New(t.TempDir(), 500000, nil)
}

// newTestRouter mirrors the production error handling chain.
func newTestRouter(uploader *uploads.Uploader) *gin.Engine {
	router := gin.New()
	router.Use(middleware.ErrorResponder(uploader, nil))
	router.NoRoute(middleware.NotFound)
	return router
}

// withTestUserID authenticates every request as userID through the real
// auth gate.
func withTestUserID(t *testing.T, userID string) gin.HandlerFunc {
	t.Helper()
	tokens := newTestTokens(t)
	token, err := tokens.Issue(userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	authenticate := middleware.AuthMiddleware(tokens)
	return func(c *gin.Context) {
		c.Request.Header.Set("Authorization", "Bearer "+token)
		authenticate(c)
	}
}

func mustStatus(t *testing.T, actual int, expected int) {
	t.Helper()
	if actual != expected {
		t.Fatalf("expected status %d, got %d", expected, actual)
	}
}

func expectHTTP200(t *testing.T, status int) {
	t.Helper()
	mustStatus(t, status, http.StatusOK)
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("part.Write: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("http.NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func countStoredImages(t *testing.T, uploader *uploads.Uploader) int {
	t.Helper()
	entries, err := os.ReadDir(uploader.ImagesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}

type stubGeocoder struct {
	location models.Location
	err      error
}

func (s stubGeocoder) Coordinates(context.Context, string) (models.Location, error) {
	return s.location, s.err
}

