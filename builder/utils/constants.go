package utils

import (
	"runtime"
)

// Fallbacks; the actual values come from _config.yml.
const (
	MaxBufferSize = 64 * 1024 // 64KB
	MaxFileSize   = 50 * 1024 * 1024
)

const DefaultWorkerCountMax = 12

// GetDefaultWorkerCount returns the default worker count based on CPU cores
func GetDefaultWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		return 2
	}
	if workers > DefaultWorkerCountMax {
		return DefaultWorkerCountMax
	}
	return workers
}
