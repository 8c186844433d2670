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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"autoback/internal/history"
	"autoback/internal/monitor"
)

func apiBaseURL() string {
	if u := os.Getenv("AUTOBACK_ADMIN_URL"); u != "" {
		return u
	}
	return "http://127.0.0.1:8089"
}

func newClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")
}

// apiError 从错误响应中取出 error 字段
func apiError(resp *resty.Response, what string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: %s (HTTP %d)", what, body.Error, resp.StatusCode())
	}
	return fmt.Errorf("%s: %s", what, resp.Status())
}

func getStatus(c *resty.Client) (*monitor.Status, error) {
	var out monitor.Status
	resp, err := c.R().
		SetResult(&out).
		Get("/api/status")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp, "GET /api/status")
	}
	return &out, nil
}

func listJobs(c *resty.Client, limit int, status string) ([]history.JobRecord, error) {
	var out struct {
		Jobs []history.JobRecord `json:"jobs"`
	}
	req := c.R().SetResult(&out)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if status != "" {
		req.SetQueryParam("status", status)
	}
	resp, err := req.Get("/api/jobs")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp, "GET /api/jobs")
	}
	return out.Jobs, nil
}
