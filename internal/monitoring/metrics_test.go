package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	users, places int64
	pingErr       error
}

func (f fakeCounter) CountUsers(context.Context) (int64, error)  { return f.users, nil }
func (f fakeCounter) CountPlaces(context.Context) (int64, error) { return f.places, nil }
func (f fakeCounter) Ping(context.Context) error                 { return f.pingErr }

func TestRequestMetricsMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(m.RequestMetricsMiddleware())
	router.GET("/api/places/:placeId", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/places/"+id, nil))
		require.Equal(t, http.StatusOK, resp.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/places/:placeId", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpActive))
	active, total := m.httpStats()
	assert.Zero(t, active)
	assert.EqualValues(t, 3, total)
}

func TestRecordUploadAndPlaceWrites(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordUpload(1200, 10*time.Millisecond, true, "")
	m.RecordUpload(0, 2*time.Millisecond, false, "unsupported_mime")
	m.RecordPlaceWrite("create", nil)
	m.RecordPlaceWrite("create", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("failure", "unsupported_mime")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.placeWrites.WithLabelValues("create", "failure")))

	stats := m.uploadStats()
	assert.EqualValues(t, 2, stats.RequestsTotal)
	assert.EqualValues(t, 1, stats.FailedTotal)
	assert.InDelta(t, 6.0, stats.AvgDurationMS, 0.001)
}

func TestMetricsHandlerExposesNamespace(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordPlaceWrite("delete", nil)

	resp := httptest.NewRecorder()
	m.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "shareplaces_places_writes_total")
}

func TestServiceReports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "a.png"), make([]byte, 2048), 0o644))

	svc := NewService(time.Now().Add(-time.Minute), fakeCounter{users: 2, places: 5}, NewMetrics(nil), dir, "memory")

	snap := svc.Snapshot(context.Background())
	assert.True(t, snap.StoreReachable)
	assert.EqualValues(t, 2, snap.UsersTotal)
	assert.EqualValues(t, 5, snap.PlacesTotal)
	assert.EqualValues(t, 1, snap.UploadsFilesCount)
	assert.EqualValues(t, 2048, snap.UploadsSizeBytes)

	storage := svc.StorageText(context.Background())
	assert.Contains(t, storage, "Places: 5")
	assert.Contains(t, storage, "2.00 KB")

	down := NewService(time.Now(), fakeCounter{pingErr: errors.New("refused")}, NewMetrics(nil), dir, "postgres")
	assert.True(t, strings.Contains(down.StatusText(context.Background()), "Store (postgres): error: refused"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 MB", formatBytes(1572864))
}
