package util

import "runtime"

// GetOptimalPoolSize returns the worker count for page rendering.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// Rendering is mostly template execution plus file writes, so twice the
// core count keeps the CPU busy while other workers block on disk.
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2
	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}
	return poolSize
}

// GetOptimalPoolSizeWithOverride returns override when positive,
// GetOptimalPoolSize() otherwise.
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
