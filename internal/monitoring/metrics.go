// Package monitoring exposes Prometheus metrics and the plain-text operator
// reports served under /api/monitor.
package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Counter is the read-only slice of the store the reports need.
type Counter interface {
	CountUsers(ctx context.Context) (int64, error)
	CountPlaces(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Service holds runtime context for monitoring and reporting.
type Service struct {
	startedAt  time.Time
	store      Counter
	metrics    *Metrics
	uploadsDir string
	driver     string
	dbStats    func() sql.DBStats
}

type Snapshot struct {
	TimestampUTC        string  `json:"timestamp_utc"`
	UptimeSeconds       int64   `json:"uptime_seconds"`
	StoreDriver         string  `json:"store_driver"`
	StoreReachable      bool    `json:"store_reachable"`
	HTTPActiveRequests  int64   `json:"http_active_requests"`
	HTTPTotalRequests   uint64  `json:"http_total_requests"`
	DBOpenConnections   int     `json:"db_open_connections"`
	DBInUseConnections  int     `json:"db_in_use_connections"`
	DBWaitCount         int64   `json:"db_wait_count"`
	Goroutines          int     `json:"goroutines"`
	GoMemoryAllocBytes  uint64  `json:"go_memory_alloc_bytes"`
	GoMemorySysBytes    uint64  `json:"go_memory_sys_bytes"`
	GoHeapInUseBytes    uint64  `json:"go_heap_in_use_bytes"`
	GoGCCount           uint32  `json:"go_gc_count"`
	UsersTotal          int64   `json:"users_total"`
	PlacesTotal         int64   `json:"places_total"`
	UploadsTotal        uint64  `json:"uploads_total"`
	UploadsFailed       uint64  `json:"uploads_failed"`
	UploadsAvgMS        float64 `json:"uploads_avg_ms"`
	UploadsSizeBytes    int64   `json:"uploads_size_bytes"`
	UploadsFilesCount   int64   `json:"uploads_files_count"`
	UploadsFSTotalBytes uint64  `json:"uploads_fs_total_bytes"`
	UploadsFSFreeBytes  uint64  `json:"uploads_fs_free_bytes"`
}

type Option func(*Service)

// WithSQLStats adds connection pool figures from a database/sql pool.
func WithSQLStats(db *sql.DB) Option {
	return func(s *Service) {
		if db != nil {
			s.dbStats = db.Stats
		}
	}
}

func NewService(startedAt time.Time, store Counter, metrics *Metrics, uploadsDir, driver string, opts ...Option) *Service {
	s := &Service{
		startedAt:  startedAt,
		store:      store,
		metrics:    metrics,
		uploadsDir: uploadsDir,
		driver:     driver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) StatusText(ctx context.Context) string {
	storeState := "ok"
	if err := s.store.Ping(ctx); err != nil {
		storeState = "error: " + err.Error()
	}

	uptime := time.Since(s.startedAt).Round(time.Second)
	activeHTTP, totalHTTP := s.metrics.httpStats()

	lines := []string{
		"Share Places Server Status",
		fmt.Sprintf("Uptime: %s", uptime),
		fmt.Sprintf("Store (%s): %s", s.driver, storeState),
		fmt.Sprintf("HTTP active requests: %d", activeHTTP),
		fmt.Sprintf("HTTP total requests: %d", totalHTTP),
	}
	if s.dbStats != nil {
		lines = append(lines, fmt.Sprintf("DB open connections: %d", s.dbStats().OpenConnections))
	}
	lines = append(lines, fmt.Sprintf("Go goroutines: %d", runtime.NumGoroutine()))
	return strings.Join(lines, "\n")
}

func (s *Service) StorageText(ctx context.Context) string {
	usersTotal, _ := s.store.CountUsers(ctx)
	placesTotal, _ := s.store.CountPlaces(ctx)
	uploads := s.metrics.uploadStats()

	uploadsBytes := dirSize(s.uploadsDir)
	uploadsFiles := dirFileCount(s.uploadsDir)
	uploadsTotal, uploadsFree := fsUsage(s.uploadsDir)

	return strings.Join([]string{
		"Share Places Storage",
		fmt.Sprintf("Users: %d", usersTotal),
		fmt.Sprintf("Places: %d", placesTotal),
		fmt.Sprintf("Uploads accepted since start: %d (failed %d, avg %.2f ms)",
			uploads.RequestsTotal-uploads.FailedTotal, uploads.FailedTotal, uploads.AvgDurationMS),
		fmt.Sprintf("Uploads folder size (%s): %s", s.uploadsDir, formatBytes(uploadsBytes)),
		fmt.Sprintf("Uploads files count: %d", uploadsFiles),
		fmt.Sprintf("Uploads disk free: %s", formatBytes(int64(uploadsFree))),
		fmt.Sprintf("Uploads disk total: %s", formatBytes(int64(uploadsTotal))),
	}, "\n")
}

func (s *Service) RuntimeText() string {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return strings.Join([]string{
		"Share Places Runtime",
		fmt.Sprintf("Go version: %s", runtime.Version()),
		fmt.Sprintf("CPU cores: %d", runtime.NumCPU()),
		fmt.Sprintf("Goroutines: %d", runtime.NumGoroutine()),
		fmt.Sprintf("Memory alloc: %s", formatBytes(int64(memory.Alloc))),
		fmt.Sprintf("Memory sys: %s", formatBytes(int64(memory.Sys))),
		fmt.Sprintf("Heap in use: %s", formatBytes(int64(memory.HeapInuse))),
		fmt.Sprintf("GC cycles: %d", memory.NumGC),
	}, "\n")
}

func (s *Service) Snapshot(ctx context.Context) Snapshot {
	activeHTTP, totalHTTP := s.metrics.httpStats()
	uploads := s.metrics.uploadStats()
	uploadsTotal, uploadsFree := fsUsage(s.uploadsDir)

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	snap := Snapshot{
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
		StoreDriver:         s.driver,
		StoreReachable:      s.store.Ping(ctx) == nil,
		HTTPActiveRequests:  activeHTTP,
		HTTPTotalRequests:   totalHTTP,
		Goroutines:          runtime.NumGoroutine(),
		GoMemoryAllocBytes:  memory.Alloc,
		GoMemorySysBytes:    memory.Sys,
		GoHeapInUseBytes:    memory.HeapInuse,
		GoGCCount:           memory.NumGC,
		UploadsTotal:        uploads.RequestsTotal,
		UploadsFailed:       uploads.FailedTotal,
		UploadsAvgMS:        uploads.AvgDurationMS,
		UploadsSizeBytes:    dirSize(s.uploadsDir),
		UploadsFilesCount:   dirFileCount(s.uploadsDir),
		UploadsFSTotalBytes: uploadsTotal,
		UploadsFSFreeBytes:  uploadsFree,
	}
	if s.dbStats != nil {
		stats := s.dbStats()
		snap.DBOpenConnections = stats.OpenConnections
		snap.DBInUseConnections = stats.InUse
		snap.DBWaitCount = stats.WaitCount
	}

	snap.UsersTotal, _ = s.store.CountUsers(ctx)
	snap.PlacesTotal, _ = s.store.CountPlaces(ctx)

	return snap
}

func (s *Service) HelpText() string {
	return strings.Join([]string{
		"Share Places monitor commands:",
		"/status - server status",
		"/storage - users, places and upload storage",
		"/runtime - Go runtime figures",
		"/snapshot - all figures as JSON",
		"/files - uploaded images, largest first",
		"/all - full report",
		"/help - this help",
	}, "\n")
}

func (s *Service) AllText(ctx context.Context) string {
	return strings.Join([]string{
		s.StatusText(ctx),
		"",
		s.StorageText(ctx),
		"",
		s.RuntimeText(),
	}, "\n")
}

func (s *Service) UploadsDir() string {
	return s.uploadsDir
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func dirFileCount(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		total++
		return nil
	})
	return total
}

func formatBytes(value int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(value)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", value, units[unit])
	}
	return fmt.Sprintf("%.2f %s", size, units[unit])
}
