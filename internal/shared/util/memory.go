package util

import "runtime"

type MemStats struct {
	HeapMB uint64
	SysMB  uint64
	NumGC  uint32
}

// ReadMemStats samples the runtime allocator. It briefly stops the world.
func ReadMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemStats{
		HeapMB: m.HeapAlloc >> 20,
		SysMB:  m.Sys >> 20,
		NumGC:  m.NumGC,
	}
}
