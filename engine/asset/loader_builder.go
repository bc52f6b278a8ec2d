package asset

// LoaderBuilderOption is a function that configures a loader before its
// worker pool is started.
type LoaderBuilderOption func(*loader)

// WithDecodeWorkers sets the number of decode workers.
//
// Parameters:
//   - workers: the worker count; values below 1 are ignored
//
// Returns:
//   - LoaderBuilderOption: the option function
func WithDecodeWorkers(workers int) LoaderBuilderOption {
	return func(l *loader) {
		if workers < 1 {
			return
		}
		l.workers = workers
	}
}

// WithQueueDepth sets the capacity of the result channel between the decode
// workers and the render thread.
//
// Parameters:
//   - depth: the channel capacity; values below 1 are ignored
//
// Returns:
//   - LoaderBuilderOption: the option function
func WithQueueDepth(depth int) LoaderBuilderOption {
	return func(l *loader) {
		if depth < 1 {
			return
		}
		l.queueDepth = depth
	}
}
