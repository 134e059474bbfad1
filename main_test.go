package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServesGreeting(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	log.SetFlags(0)
	defer log.SetOutput(os.Stderr)
	defer log.SetFlags(log.LstdFlags)

	cfg := Config{Host: "127.0.0.1", Port: freePort(t)}.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg)
	}()

	url := "http://" + cfg.Addr() + "/"
	var body []byte
	var code int
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		code = resp.StatusCode
		body, err = io.ReadAll(resp.Body)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, greeting, string(body))

	resp, err := http.Post(url, "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	assert.Equal(t, "Running on http://"+cfg.Addr(), lines[0])
}

func TestRunFailsWhenAddressInUse(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: freePort(t)}.WithDefaults()
	first, err := bind("http", cfg.Addr(), newRouter(nil))
	require.NoError(t, err)
	defer first.ln.Close()

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	err = run(context.Background(), cfg)
	require.ErrorContains(t, err, "failed to listen on "+cfg.Addr())
	assert.NotContains(t, logs.String(), "Running on")
}

func TestRunServesMetrics(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	metricsAddr := "127.0.0.1:" + strconv.Itoa(freePort(t))
	cfg := Config{Host: "127.0.0.1", Port: freePort(t), MetricsAddr: metricsAddr}.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Addr() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get("http://" + metricsAddr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `hello_http_requests_total{code="200",method="GET",route="/"} 1`)

	// The main listener never exposes metrics.
	resp, err = http.Get("http://" + cfg.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
