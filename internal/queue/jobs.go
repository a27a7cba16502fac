package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TypeThumbnail is scheduled after every successful image upload.
	TypeThumbnail = "file:thumbnail"
	// TypeWelcome is scheduled after every registration.
	TypeWelcome = "user:welcome"
)

// ThumbnailPayload names the record whose blob should be resized. Both fields
// are required; the worker refuses the job when either is empty.
type ThumbnailPayload struct {
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	UserID string `json:"userId"`
}

// Enqueuer hands tasks to whatever runs them: redis through asynq or the
// in-process Dispatcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Client enqueues onto redis with asynq's default retry policy.
type Client struct {
	client *asynq.Client
}

func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Enqueue(ctx context.Context, task *asynq.Task) error {
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s task: %w", task.Type(), err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// NewThumbnailTask builds the resize job for an uploaded image.
func NewThumbnailTask(payload ThumbnailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeThumbnail, data), nil
}

func NewWelcomeTask(payload WelcomePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeWelcome, data), nil
}

// EnqueueThumbnail enqueues a thumbnail job.
func EnqueueThumbnail(ctx context.Context, q Enqueuer, payload ThumbnailPayload) error {
	task, err := NewThumbnailTask(payload)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, task)
}

// EnqueueWelcome enqueues a welcome job.
func EnqueueWelcome(ctx context.Context, q Enqueuer, payload WelcomePayload) error {
	task, err := NewWelcomeTask(payload)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, task)
}
