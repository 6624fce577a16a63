package handlers

import (
	"crypto/subtle"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ncruz89/share-space-app-backend/internal/monitoring"
)

type MonitorHandler struct {
	service *monitoring.Service
	apiKey  string
}

func NewMonitorHandler(service *monitoring.Service, apiKey string) *MonitorHandler {
	return &MonitorHandler{service: service, apiKey: strings.TrimSpace(apiKey)}
}

// RequireKey guards the monitor API with the X-Monitoring-Key header.
func (h *MonitorHandler) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Monitoring API is disabled"})
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Monitoring-Key"))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid monitoring key"})
			return
		}
		c.Next()
	}
}

func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.service.StatusText(c.Request.Context())})
}

func (h *MonitorHandler) Storage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.service.StorageText(c.Request.Context())})
}

func (h *MonitorHandler) Runtime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.service.RuntimeText()})
}

func (h *MonitorHandler) All(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.service.AllText(c.Request.Context())})
}

func (h *MonitorHandler) Help(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.service.HelpText()})
}

func (h *MonitorHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot(c.Request.Context()))
}

type monitorFileItem struct {
	Name         string    `json:"name"`
	RelativePath string    `json:"relative_path"`
	SizeBytes    int64     `json:"size_bytes"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// Files lists stored uploads, largest first, one page at a time.
func (h *MonitorHandler) Files(c *gin.Context) {
	query := parsePageQuery(c.Query("page"), c.Query("limit"), defaultPageLimit, maxPageLimit)

	rootPath := filepath.Clean(h.service.UploadsDir())
	if absRootPath, err := filepath.Abs(rootPath); err == nil {
		rootPath = absRootPath
	}

	files := make([]monitorFileItem, 0)
	_ = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		relativePath, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			relativePath = d.Name()
		}

		files = append(files, monitorFileItem{
			Name:         d.Name(),
			RelativePath: filepath.ToSlash(relativePath),
			SizeBytes:    info.Size(),
			ModifiedAt:   info.ModTime().UTC(),
		})
		return nil
	})

	sort.Slice(files, func(left, right int) bool {
		if files[left].SizeBytes == files[right].SizeBytes {
			return files[left].RelativePath < files[right].RelativePath
		}
		return files[left].SizeBytes > files[right].SizeBytes
	})

	page, totalPages, start, end := query.window(len(files))

	c.JSON(http.StatusOK, gin.H{
		"page":        page,
		"limit":       query.Limit,
		"total_files": len(files),
		"total_pages": totalPages,
		"files":       files[start:end],
	})
}
