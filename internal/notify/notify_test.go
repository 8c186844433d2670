package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoback/pkg/config"
)

func TestNew(t *testing.T) {
	n, err := New(config.NotificationConfig{Enabled: false, Kind: "webhook"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)

	n, err = New(config.NotificationConfig{Enabled: true, Kind: "log"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	n, err = New(config.NotificationConfig{Enabled: true, Kind: "webhook", WebhookURL: "http://localhost", MinInterval: "2s"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)

	_, err = New(config.NotificationConfig{Enabled: true, Kind: "led"}, nil)
	assert.Error(t, err)
}

func TestWebhookNotifier_PostsBeginAndEnd(t *testing.T) {
	var mu sync.Mutex
	var got []webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0, nil)
	job := Job{ID: "j1", AppID: "0100F2C0115B6000"}
	n.Begin(context.Background(), job)
	n.End(context.Background(), job, errors.New("disk full"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "archive.begin", got[0].Event)
	assert.Equal(t, "archive.end", got[1].Event)
	assert.Equal(t, "failed", got[1].Status)
	assert.Equal(t, "disk full", got[1].Error)
	assert.Equal(t, "j1", got[1].Job.ID)
}

func TestWebhookNotifier_EndStatus(t *testing.T) {
	var mu sync.Mutex
	var got []webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0, nil)
	n.End(context.Background(), Job{ID: "written"}, nil)
	n.End(context.Background(), Job{ID: "nothing", Skipped: true}, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].Status)
	assert.Equal(t, "skipped", got[1].Status)
	assert.True(t, got[1].Job.Skipped)
	assert.Empty(t, got[1].Error)
}

func TestJobResult(t *testing.T) {
	assert.Equal(t, "ok", Job{}.Result(nil))
	assert.Equal(t, "skipped", Job{Skipped: true}.Result(nil))
	assert.Equal(t, "failed", Job{Skipped: true}.Result(errors.New("boom")))
}

func TestWebhookNotifier_Throttled(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Hour, nil)
	for i := 0; i < 5; i++ {
		n.Begin(context.Background(), Job{ID: "j"})
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls, "burst of 2 then dropped")
}

func TestWebhookNotifier_ServerDownIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	url := srv.URL
	srv.Close()
	n := NewWebhookNotifier(url, 0, nil)
	n.Begin(context.Background(), Job{ID: "j"})
	n.End(context.Background(), Job{ID: "j"}, nil)
}
