package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/metrics"
	"github.com/dharsanguruparan/filevault/internal/queue"
	"github.com/dharsanguruparan/filevault/internal/repository"
	"github.com/dharsanguruparan/filevault/internal/storage"
	"github.com/dharsanguruparan/filevault/internal/thumbnail"
)

// Processor is plugged into the asynq worker loop or the inline dispatcher.
type Processor struct {
	store   repository.Store
	blobs   storage.Blob
	log     *logrus.Logger
	metrics *metrics.Metrics
	resize  func(data []byte, width int) ([]byte, error)
}

// NewProcessor constructs a worker processor. m may be nil.
func NewProcessor(store repository.Store, blobs storage.Blob, log *logrus.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		store:   store,
		blobs:   blobs,
		log:     log,
		metrics: m,
		resize:  thumbnail.Resize,
	}
}

// Handler registers the job handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeThumbnail, p.observe(queue.TypeThumbnail, p.HandleThumbnail))
	mux.HandleFunc(queue.TypeWelcome, p.observe(queue.TypeWelcome, p.HandleWelcome))
	return mux
}

func (p *Processor) observe(taskType string, h func(context.Context, *asynq.Task) error) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		err := h(ctx, task)
		if p.metrics != nil {
			p.metrics.ObserveJob(taskType, err)
		}
		return err
	}
}

// permanent marks err as terminal so asynq archives the task without retry.
func permanent(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, asynq.SkipRetry)...)
}

// HandleThumbnail writes one derivative per width next to the original blob.
// The job succeeds only when every derivative was written; derivatives
// written before a failure are left in place.
func (p *Processor) HandleThumbnail(ctx context.Context, task *asynq.Task) error {
	var payload queue.ThumbnailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return permanent("decode payload: %v", err)
	}
	if payload.FileID == "" {
		return permanent("Missing fileId")
	}
	if payload.UserID == "" {
		return permanent("Missing userId")
	}
	jobID, _ := asynq.GetTaskID(ctx)
	log := p.log.WithFields(logrus.Fields{"jobID": jobID, "fileId": payload.FileID, "userId": payload.UserID})
	log.Info("thumbnail job started")

	file, err := p.store.FileByOwner(ctx, payload.FileID, payload.UserID)
	if errors.Is(err, common.ErrNotFound) {
		log.Error("thumbnail job failed: file not found")
		return permanent("File not found")
	}
	if err != nil {
		log.WithError(err).Error("thumbnail job failed")
		return err
	}
	if file.LocalPath == "" {
		log.Error("thumbnail job failed: file has no content")
		return permanent("file %s has no content", file.ID)
	}

	ok, err := p.blobs.Exists(ctx, file.LocalPath)
	if err != nil {
		log.WithError(err).Error("thumbnail job failed")
		return err
	}
	if !ok {
		log.Error("thumbnail job failed: original blob missing")
		return permanent("blob %s missing", file.LocalPath)
	}
	original, err := p.blobs.Get(ctx, file.LocalPath)
	if err != nil {
		log.WithError(err).Error("thumbnail job failed")
		return err
	}

	results := make(chan error, len(thumbnail.Widths))
	for _, width := range thumbnail.Widths {
		go func(width int) {
			results <- p.writeDerivative(ctx, log, original, file.LocalPath, width)
		}(width)
	}

	completed := 0
	var errs []error
	for range thumbnail.Widths {
		if err := <-results; err != nil {
			errs = append(errs, err)
			continue
		}
		completed++
	}
	if completed != len(thumbnail.Widths) {
		err := fmt.Errorf("thumbnail %s: %d of %d derivatives written: %w",
			file.ID, completed, len(thumbnail.Widths), errors.Join(errs...))
		log.WithError(err).Error("thumbnail job failed")
		return err
	}
	log.Info("thumbnail job completed")
	return nil
}

func (p *Processor) writeDerivative(ctx context.Context, log *logrus.Entry, original []byte, path string, width int) error {
	resized, err := p.resize(original, width)
	if err != nil {
		return fmt.Errorf("resize %d: %w", width, err)
	}
	dst := thumbnail.DerivativePath(path, width)
	if err := p.blobs.PutAt(ctx, dst, resized); err != nil {
		return fmt.Errorf("write %d: %w", width, err)
	}
	log.WithField("width", width).Debug("derivative written")
	return nil
}

// HandleWelcome acknowledges a new registration.
func (p *Processor) HandleWelcome(ctx context.Context, task *asynq.Task) error {
	var payload queue.WelcomePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return permanent("decode payload: %v", err)
	}
	if payload.UserID == "" {
		return permanent("Missing userId")
	}
	user, err := p.store.UserByID(ctx, payload.UserID)
	if errors.Is(err, common.ErrNotFound) {
		p.log.WithField("userId", payload.UserID).Error("welcome job failed: user not found")
		return permanent("User not found")
	}
	if err != nil {
		return err
	}
	p.log.WithField("userId", user.ID).Infof("Welcome %s!", user.Email)
	return nil
}
