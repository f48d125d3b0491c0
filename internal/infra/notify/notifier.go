// Package notify creates per-run messaging channels through an HTTP webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// ErrNotifyRejected is returned when the webhook answers but refuses the request.
var ErrNotifyRejected = errors.New("run channel request rejected")

// Ensure implementations satisfy domain.Notifier.
var (
	_ domain.Notifier = (*Webhook)(nil)
	_ domain.Notifier = Noop{}
)

type channelRequest struct {
	JobID string `json:"jobId"`
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
	Idea  string `json:"idea"`
}

type channelResponse struct {
	Channel *struct {
		ChannelID string `json:"channelId"`
		Name      string `json:"name"`
	} `json:"channel"`
	Error    string `json:"error"`
	ThreadTS string `json:"thread_ts"`
	OK       bool   `json:"ok"`
}

// Webhook posts confirmed runs to the channel-creation endpoint.
// Repeated failures open a circuit breaker so a dead endpoint does not slow every confirm.
type Webhook struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	url    string
}

// NewWebhook creates a Webhook notifier for url.
func NewWebhook(url string, timeout time.Duration, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Webhook{
		url:    url,
		client: client,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "run-channel",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// CreateRunChannel asks the endpoint to create a channel for job.
func (w *Webhook) CreateRunChannel(ctx context.Context, job *domain.Job) (*domain.ChannelInfo, error) {
	out, err := w.cb.Execute(func() (interface{}, error) {
		return w.post(ctx, job)
	})
	if err != nil {
		return nil, fmt.Errorf("create run channel: %w", err)
	}
	return out.(*domain.ChannelInfo), nil
}

func (w *Webhook) post(ctx context.Context, job *domain.Job) (*domain.ChannelInfo, error) {
	body, err := json.Marshal(channelRequest{
		JobID: job.JobID,
		Code:  job.Code,
		Title: job.Title,
		Idea:  job.Idea,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var res channelResponse
	_ = json.Unmarshal(raw, &res)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrNotifyRejected, resp.StatusCode, res.Error)
	}
	if !res.OK || res.Channel == nil || res.Channel.ChannelID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotifyRejected, res.Error)
	}
	return &domain.ChannelInfo{
		ChannelID: res.Channel.ChannelID,
		Name:      res.Channel.Name,
		ThreadTS:  res.ThreadTS,
	}, nil
}

// Noop is used when no endpoint is configured.
type Noop struct{}

// CreateRunChannel returns no channel.
func (Noop) CreateRunChannel(context.Context, *domain.Job) (*domain.ChannelInfo, error) {
	return nil, nil
}
