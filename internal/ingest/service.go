package ingest

import (
	"context"

	"go.uber.org/zap"

	"go-leave/internal/shared/apperror"
)

// Monitor is the record-type-independent face of a Service, for callers
// that only start and stop watching.
type Monitor interface {
	StartMonitoring() error
	StopMonitoring()
	Close()
}

// BulkRepository persists a batch of parsed records in one shot.
type BulkRepository[T any] interface {
	SaveAll(ctx context.Context, records []T) error
}

// Service ties a directory watcher to the concurrent reader and a bulk
// repository: every created or modified file in the watched directory is
// validated, parsed and upserted.
type Service[T any] struct {
	reader  *Reader[T]
	repo    BulkRepository[T]
	watcher *DirectoryWatcher
	logger  *zap.Logger
}

func NewService[T any](dir string, reader *Reader[T], repo BulkRepository[T], logger ...*zap.Logger) *Service[T] {
	l := zap.L().Named("ingest.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ingest.service")
	}

	s := &Service[T]{reader: reader, repo: repo, logger: l}
	s.watcher = NewDirectoryWatcher(dir, s.handleFileChange, l)
	return s
}

// ProcessFiles reads every path and persists the combined result. Nothing is
// persisted when any file fails to read.
func (s *Service[T]) ProcessFiles(ctx context.Context, paths []string) error {
	records, err := s.reader.Read(ctx, paths)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	if err := s.repo.SaveAll(ctx, records); err != nil {
		return apperror.Persistence(err)
	}

	s.logger.Info("ingested records", zap.Int("count", len(records)), zap.Int("files", len(paths)))
	return nil
}

func (s *Service[T]) StartMonitoring() error {
	return s.watcher.Start()
}

func (s *Service[T]) StopMonitoring() {
	s.watcher.Stop()
}

// Close releases the reader pool. The service must not be used afterwards.
func (s *Service[T]) Close() {
	s.reader.Close()
}

// Ingestion is best effort per event: a bad file is logged and skipped, the
// watcher keeps running.
func (s *Service[T]) handleFileChange(path string) {
	if err := s.ProcessFiles(context.Background(), []string{path}); err != nil {
		s.logger.Error("failed to ingest file", zap.String("path", path), zap.Error(err))
	}
}
