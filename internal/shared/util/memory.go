package util

import "runtime"

// HeapAllocMB is the live heap in mebibytes, for debug logs.
func HeapAllocMB() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return float64(stats.HeapAlloc) / (1 << 20)
}
