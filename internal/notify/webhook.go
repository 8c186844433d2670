// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const webhookTimeout = 5 * time.Second

// webhookPayload POST 到 webhook 的 JSON
type webhookPayload struct {
	Event  string    `json:"event"` // archive.begin | archive.end
	Job    Job       `json:"job"`
	Status string    `json:"status,omitempty"` // ok | skipped | failed
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// WebhookNotifier 以 JSON POST 通知外部服务；超出频率的事件直接丢弃
type WebhookNotifier struct {
	client  *resty.Client
	url     string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewWebhookNotifier minInterval 为两次通知的最小间隔（<=0 不限流）
func NewWebhookNotifier(url string, minInterval time.Duration, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &WebhookNotifier{
		client: resty.New().
			SetTimeout(webhookTimeout).
			SetHeader("Content-Type", "application/json"),
		url:     url,
		limiter: rate.NewLimiter(limit, 2),
		logger:  logger,
	}
}

func (n *WebhookNotifier) Begin(ctx context.Context, job Job) {
	n.post(ctx, webhookPayload{Event: "archive.begin", Job: job})
}

func (n *WebhookNotifier) End(ctx context.Context, job Job, err error) {
	p := webhookPayload{Event: "archive.end", Job: job, Status: job.Result(err)}
	if err != nil {
		p.Error = err.Error()
	}
	n.post(ctx, p)
}

func (n *WebhookNotifier) post(ctx context.Context, p webhookPayload) {
	if !n.limiter.Allow() {
		n.logger.Debug("webhook 通知被限流丢弃", "event", p.Event, "job_id", p.Job.ID)
		return
	}
	p.At = time.Now().UTC()
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(p).
		Post(n.url)
	if err != nil {
		n.logger.Warn("webhook 通知失败", "event", p.Event, "error", err)
		return
	}
	if resp.IsError() {
		n.logger.Warn("webhook 通知返回错误", "event", p.Event, "status", resp.StatusCode(), "body", resp.String())
	}
}
