package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoback/internal/archive"
	"autoback/internal/history"
	"autoback/internal/monitor"
	"autoback/pkg/config"
)

func buildArchive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	b := archive.NewBuilder(filepath.Join(dir, "staging"), nil)
	st, err := b.Build(context.Background(), fstest.MapFS{
		"save.dat": {Data: []byte("level=9")},
	}, archive.Manifest{AppID: "0100000000010000", AccountUID: "00000000000000010000000000000002", Nickname: "alice"})
	require.NoError(t, err)
	defer st.Release()

	out := filepath.Join(dir, "out.zip")
	_, err = archive.NewStreamer(archive.OSVolume{}, 0, nil).Stream(context.Background(), st.Source(), out)
	require.NoError(t, err)
	return out
}

func TestVerifyArchive_Success(t *testing.T) {
	path := buildArchive(t)

	var stdout, stderr bytes.Buffer
	code := verifyArchive(path, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr=%s", stderr.String())
	assert.Contains(t, stdout.String(), "Verification PASSED")
	assert.Contains(t, stdout.String(), "alice")
}

func TestVerifyArchive_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	var stdout, stderr bytes.Buffer
	code := verifyArchive(path, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Verification FAILED")
}

func newAdminServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(monitor.Status{
			State:    monitor.StateTracking,
			AppID:    "0100000000010000",
			AppName:  "Game A",
			Nickname: "alice",
			JobsRun:  4,
		})
	})
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "bogus" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown status: bogus"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jobs": []history.JobRecord{{
				JobID:      "job-1",
				AppID:      "0100000000010000",
				Nickname:   "alice",
				Status:     history.StatusCompleted,
				Bytes:      2048,
				OutputPath: "/autoback/alice/Game A/0100000000010000_20260101_120000.zip",
				FinishedAt: time.Date(2026, 1, 1, 12, 0, 1, 0, time.UTC),
			}},
			"count": 1,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCmd(t *testing.T) {
	srv := newAdminServer(t)
	out, err := runCmd(t, "--url", srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "tracking")
	assert.Contains(t, out, "Game A")
	assert.Contains(t, out, "4 run")
}

func TestJobsCmd(t *testing.T) {
	srv := newAdminServer(t)
	out, err := runCmd(t, "--url", srv.URL, "jobs", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "2.0 KiB")

	_, err = runCmd(t, "--url", srv.URL, "jobs", "--status", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status: bogus")
}

func TestConfigCmd_RedactsSecrets(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.History.DSN = "postgres://user:secret@db/autoback"

	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, cfg))
	assert.Contains(t, buf.String(), "root_backup_path: /autoback")
	assert.NotContains(t, buf.String(), "secret")
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "autobackctl "+version)
}
