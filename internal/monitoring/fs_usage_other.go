//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package monitoring

// Filesystem usage is only reported on unix-like hosts.
func fsUsage(string) (totalBytes uint64, freeBytes uint64) {
	return 0, 0
}
