// Package asset decodes images off the render thread and hands the resulting
// staging data back over a buffered channel. The render thread calls Drain
// once per tick to pick up completed decodes and perform the GPU uploads; it
// never blocks on I/O or decoding.
package asset

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"os"
	"sync/atomic"
	"time"

	// Decoders registered for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/ember2d/ember-go/common"
)

// DefaultDecodeWorkers is the number of decode workers when not configured.
const DefaultDecodeWorkers = 2

// DefaultQueueDepth is the result channel capacity when not configured. A
// full channel makes completed decodes wait for the next Drain, never
// dropping results.
const DefaultQueueDepth = 64

// Result is one completed decode handed back to the render thread.
type Result struct {
	// ID is the caller-chosen identifier passed to LoadTexture.
	ID string

	// Staging holds the decoded RGBA pixels, valid when Err is nil.
	Staging common.TextureStagingData

	// Err reports a failed open or decode.
	Err error
}

// loader is the implementation of the Loader interface.
type loader struct {
	pool    worker.DynamicWorkerPool
	results chan Result

	workers    int
	queueDepth int

	// nextTaskID is atomic so LoadTexture/LoadTextureBytes stay safe from
	// any goroutine.
	nextTaskID atomic.Int64
}

// Loader decodes textures on a worker pool and delivers results to the
// render thread. LoadTexture and LoadTextureBytes may be called from any
// goroutine; Drain belongs to the render thread.
type Loader interface {
	// LoadTexture queues a decode of an image file. The result arrives on a
	// later Drain call under the given id.
	//
	// Parameters:
	//   - id: the caller-chosen identifier returned with the result
	//   - path: the image file to decode (png, jpeg, bmp, or webp)
	LoadTexture(id, path string)

	// LoadTextureBytes queues a decode of in-memory image bytes. The result
	// arrives on a later Drain call under the given id.
	//
	// Parameters:
	//   - id: the caller-chosen identifier returned with the result
	//   - data: the encoded image bytes
	LoadTextureBytes(id string, data []byte)

	// Drain delivers every decode completed so far to apply, in completion
	// order, without blocking. Call once per tick on the render thread.
	//
	// Parameters:
	//   - apply: invoked for each completed result; typically performs the
	//     GPU upload
	//
	// Returns:
	//   - int: the number of results delivered
	Drain(apply func(Result)) int
}

var _ Loader = &loader{}

// NewLoader creates a Loader with its own decode worker pool.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the newly created loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		workers:    DefaultDecodeWorkers,
		queueDepth: DefaultQueueDepth,
	}
	for _, opt := range options {
		opt(l)
	}
	l.results = make(chan Result, l.queueDepth)
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

func (l *loader) LoadTexture(id, path string) {
	l.submit(id, func() (common.TextureStagingData, error) {
		file, err := os.Open(path)
		if err != nil {
			return common.TextureStagingData{}, fmt.Errorf("open texture %s: %w", path, err)
		}
		defer file.Close()

		img, _, err := image.Decode(file)
		if err != nil {
			return common.TextureStagingData{}, fmt.Errorf("decode texture %s: %w", path, err)
		}
		return rasterize(img), nil
	})
}

func (l *loader) LoadTextureBytes(id string, data []byte) {
	l.submit(id, func() (common.TextureStagingData, error) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return common.TextureStagingData{}, fmt.Errorf("decode embedded texture: %w", err)
		}
		return rasterize(img), nil
	})
}

func (l *loader) submit(id string, decode func() (common.TextureStagingData, error)) {
	l.pool.SubmitTask(worker.Task{
		ID: int(l.nextTaskID.Add(1)),
		Do: func() (any, error) {
			staging, err := decode()
			l.results <- Result{ID: id, Staging: staging, Err: err}
			return nil, nil
		},
	})
}

func (l *loader) Drain(apply func(Result)) int {
	delivered := 0
	for {
		select {
		case res := <-l.results:
			apply(res)
			delivered++
		default:
			return delivered
		}
	}
}

// rasterize converts a decoded image to tightly packed RGBA staging data.
func rasterize(img image.Image) common.TextureStagingData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
