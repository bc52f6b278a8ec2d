package profiler

import (
	"log"
	"runtime"
	"time"
)

// FrameStats holds the per-frame render counters recorded by the renderer.
type FrameStats struct {
	// Batches is the number of GPU batches the frame flushed.
	Batches int

	// DrawCalls is the number of draw calls the frame encoded.
	DrawCalls int

	// Vertices is the number of vertices the frame uploaded.
	Vertices int

	// CacheHits and CacheMisses count resource cache lookups during the frame.
	CacheHits   int
	CacheMisses int
}

// Profiler tracks frame rate, render batching, and memory statistics for
// performance monitoring. Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// accumulated render counters since the last log line.
	batches     int
	drawCalls   int
	vertices    int
	cacheHits   int
	cacheMisses int
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
}

// RecordFrame accumulates one frame's render counters. Call once per frame,
// before Tick.
//
// Parameters:
//   - stats: the counters for the frame just composed
func (p *Profiler) RecordFrame(stats FrameStats) {
	p.batches += stats.Batches
	p.drawCalls += stats.DrawCalls
	p.vertices += stats.Vertices
	p.cacheHits += stats.CacheHits
	p.cacheMisses += stats.CacheMisses
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, batches and draw calls per frame, cache hit rate,
// heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		frames := float64(p.frameCount)
		batchesPerFrame := float64(p.batches) / frames
		drawsPerFrame := float64(p.drawCalls) / frames
		vertsPerFrame := float64(p.vertices) / frames
		hitRate := 0.0
		if lookups := p.cacheHits + p.cacheMisses; lookups > 0 {
			hitRate = float64(p.cacheHits) / float64(lookups) * 100
		}

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		log.Printf("[Profiler] FPS: %.2f | Batches/f: %.1f | Draws/f: %.1f | Verts/f: %.0f | Cache: %.1f%% hit | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			fps, batchesPerFrame, drawsPerFrame, vertsPerFrame, hitRate, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		p.batches = 0
		p.drawCalls = 0
		p.vertices = 0
		p.cacheHits = 0
		p.cacheMisses = 0
		return true
	}

	return false
}
