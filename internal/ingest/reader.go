package ingest

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// How long Close waits for in-flight parse tasks before forcing shutdown.
const shutdownGrace = 5 * time.Second

type readTask[T any] struct {
	path    string
	results chan<- readResult[T]
}

type readResult[T any] struct {
	records []T
	err     error
}

// Reader fans batches of file paths out across a fixed worker pool, running
// the file validator and the parser per file. The pool is created once and
// reused across read calls; it is not rebuilt per batch.
type Reader[T any] struct {
	validator *FileValidator
	parser    Parser[T]
	tasks     chan readTask[T]
	force     chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewReader[T any](validator *FileValidator, parser Parser[T], logger ...*zap.Logger) *Reader[T] {
	l := zap.L().Named("ingest.reader")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ingest.reader")
	}

	r := &Reader[T]{
		validator: validator,
		parser:    parser,
		tasks:     make(chan readTask[T]),
		force:     make(chan struct{}),
		logger:    l,
	}

	workers := runtime.NumCPU()
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	l.Debug("reader pool started", zap.Int("workers", workers))

	return r
}

// Read attempts every path in the input exactly once (duplicates collapsed)
// and returns the union of all successfully parsed records. The first error
// observed is returned after all started tasks are drained; sibling in-flight
// tasks are not cancelled on failure.
func (r *Reader[T]) Read(ctx context.Context, paths []string) ([]T, error) {
	unique := dedupePaths(paths)
	if len(unique) == 0 {
		return nil, nil
	}

	// Buffered to pool capacity so workers never block on a caller that has
	// already given up.
	results := make(chan readResult[T], len(unique))

	submitted := 0
	for _, path := range unique {
		if err := ctx.Err(); err != nil {
			return nil, &ReadError{Kind: ReadInterrupted, Err: err}
		}
		select {
		case <-ctx.Done():
			return nil, &ReadError{Kind: ReadInterrupted, Err: ctx.Err()}
		case r.tasks <- readTask[T]{path: path, results: results}:
			submitted++
		}
	}

	var records []T
	var firstErr error
	for i := 0; i < submitted; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &ReadError{Kind: ReadInterrupted, Err: err}
		}
		select {
		case <-ctx.Done():
			return nil, &ReadError{Kind: ReadInterrupted, Err: ctx.Err()}
		case res := <-results:
			if res.err != nil {
				if firstErr == nil {
					firstErr = res.err
				}
				continue
			}
			records = append(records, res.records...)
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return records, nil
}

// Close drains queued tasks, waits up to the grace period for workers to
// finish, then forces the pool down. Safe to call once all reads returned.
func (r *Reader[T]) Close() {
	r.closeOnce.Do(func() {
		close(r.tasks)

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			r.logger.Debug("reader pool stopped")
		case <-time.After(shutdownGrace):
			close(r.force)
			r.logger.Warn("reader pool shutdown grace elapsed, forcing stop")
		}
	})
}

func (r *Reader[T]) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.force:
			return
		case task, ok := <-r.tasks:
			if !ok {
				return
			}
			task.results <- r.processFile(task.path)
		}
	}
}

func (r *Reader[T]) processFile(path string) readResult[T] {
	if err := r.validator.Validate(path); err != nil {
		kind := ReadValidationFailed
		var vErr *ValidationError
		if errors.As(err, &vErr) && vErr.Reason == ReasonNotFound {
			kind = ReadNotFound
		}
		return readResult[T]{err: &ReadError{Kind: kind, Path: path, Err: err}}
	}

	records, err := r.parser.Parse(path)
	if err != nil {
		return readResult[T]{err: &ReadError{Kind: ReadParseFailed, Path: path, Err: err}}
	}
	return readResult[T]{records: records}
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}
