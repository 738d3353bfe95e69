package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"echoai/internal/config"
)

const userAgent = "EchoAI/0.1.0"

// Service defines the notification surface exposed to the workflow manager.
type Service interface {
	NotifyJobQueued(ctx context.Context, jobID int64, topic string) error
	NotifyJobCompleted(ctx context.Context, jobID int64, topic, outputFile string) error
	NotifyJobFailed(ctx context.Context, jobID int64, topic, reason string) error
	NotifyJobCancelled(ctx context.Context, jobID int64, topic string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if endpoint == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: timeout},
		completion: cfg.Notifications.Completion,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completion bool
	errors     bool
}

func (n *ntfyService) NotifyJobQueued(ctx context.Context, jobID int64, topic string) error {
	if !n.completion {
		return nil
	}
	return n.send(ctx, payload{
		title:   "EchoAI - Job Queued",
		message: fmt.Sprintf("Job %d queued: %s", jobID, strings.TrimSpace(topic)),
		tags:    []string{"echoai", "queued"},
	})
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID int64, topic, outputFile string) error {
	if !n.completion {
		return nil
	}
	message := fmt.Sprintf("Video ready for %q", strings.TrimSpace(topic))
	if outputFile = strings.TrimSpace(outputFile); outputFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputFile)
	}
	return n.send(ctx, payload{
		title:    "EchoAI - Complete",
		message:  message,
		tags:     []string{"echoai", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID int64, topic, reason string) error {
	if !n.errors {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "EchoAI - Failed",
		message:  fmt.Sprintf("Job %d (%s) failed: %s", jobID, strings.TrimSpace(topic), reason),
		tags:     []string{"echoai", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyJobCancelled(ctx context.Context, jobID int64, topic string) error {
	if !n.completion {
		return nil
	}
	return n.send(ctx, payload{
		title:   "EchoAI - Cancelled",
		message: fmt.Sprintf("Job %d cancelled: %s", jobID, strings.TrimSpace(topic)),
		tags:    []string{"echoai", "cancelled"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "EchoAI - Test",
		message:  "Notification system test",
		tags:     []string{"echoai", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobQueued(context.Context, int64, string) error             { return nil }
func (noopService) NotifyJobCompleted(context.Context, int64, string, string) error  { return nil }
func (noopService) NotifyJobFailed(context.Context, int64, string, string) error     { return nil }
func (noopService) NotifyJobCancelled(context.Context, int64, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
