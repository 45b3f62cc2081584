package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/pkg/jobs"
)

// ArchiveTask is one upload payload waiting to be written.
type ArchiveTask struct {
	Name string
	Data []byte
}

// QueuedArchiver moves archive writes off the request path.
type QueuedArchiver struct {
	queue *jobs.Queue[ArchiveTask]
}

// NewQueuedArchiver wraps store with a background worker queue.
func NewQueuedArchiver(store UploadArchiver, cfg jobs.QueueConfig) *QueuedArchiver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, task ArchiveTask) error {
		stored, err := store.Save(task.Name, task.Data)
		if err != nil {
			return err
		}
		logger.Debug("upload archived", zap.String("path", stored), zap.Int("bytes", len(task.Data)))
		return nil
	}
	return &QueuedArchiver{queue: jobs.NewQueue("upload-archive", handler, cfg)}
}

// Start launches the archive workers.
func (a *QueuedArchiver) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop flushes pending writes.
func (a *QueuedArchiver) Stop() {
	a.queue.Stop()
}

// Save enqueues the payload and returns the name it will be stored under.
func (a *QueuedArchiver) Save(name string, data []byte) (string, error) {
	if err := a.queue.Enqueue(ArchiveTask{Name: name, Data: data}); err != nil {
		return "", err
	}
	return name, nil
}
