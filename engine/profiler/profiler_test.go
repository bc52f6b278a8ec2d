package profiler

import (
	"testing"
	"time"
)

func TestTickHoldsUntilIntervalElapses(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = time.Hour

	for i := 0; i < 10; i++ {
		if p.Tick() {
			t.Fatal("tick logged before the interval elapsed")
		}
	}
	if p.frameCount != 10 {
		t.Fatalf("frame count = %d, want 10", p.frameCount)
	}
}

func TestTickLogsAndResetsCounters(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = 0

	p.RecordFrame(FrameStats{Batches: 3, DrawCalls: 5, Vertices: 120, CacheHits: 9, CacheMisses: 1})
	if !p.Tick() {
		t.Fatal("tick with a zero interval must log")
	}

	if p.frameCount != 0 || p.batches != 0 || p.drawCalls != 0 || p.vertices != 0 {
		t.Error("tick must reset the accumulated counters")
	}
	if p.cacheHits != 0 || p.cacheMisses != 0 {
		t.Error("tick must reset the cache counters")
	}
}

func TestRecordFrameAccumulates(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = time.Hour

	p.RecordFrame(FrameStats{Batches: 2, DrawCalls: 2, Vertices: 40})
	p.RecordFrame(FrameStats{Batches: 1, DrawCalls: 3, Vertices: 60, CacheHits: 4})

	if p.batches != 3 || p.drawCalls != 5 || p.vertices != 100 || p.cacheHits != 4 {
		t.Fatalf("accumulated = %d/%d/%d/%d, want 3/5/100/4", p.batches, p.drawCalls, p.vertices, p.cacheHits)
	}
}
