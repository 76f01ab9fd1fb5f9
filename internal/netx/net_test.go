package netx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(timeout time.Duration) *Client {
	c := New(timeout)
	c.base = time.Millisecond
	return c
}

func TestUpload_Success(t *testing.T) {
	file := []byte("ciphertext")
	var gotBody []byte
	var gotCT, gotMethod string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := newTestClient(time.Second).Upload(context.Background(), ts.URL+"/obj?X-Amz-Signature=abc", file)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/octet-stream", gotCT)
	assert.True(t, bytes.Equal(file, gotBody))
}

func TestDownload_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("payload"))
	}))
	defer ts.Close()

	data, err := newTestClient(time.Second).Download(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     error
		attempts int32
	}{
		{"expired signature", http.StatusForbidden, "<Error><Code>AccessDenied</Code><Message>Request has expired</Message></Error>", common.ErrLinkExpired, 1},
		{"forbidden", http.StatusForbidden, "<Error><Code>SignatureDoesNotMatch</Code></Error>", common.ErrorUnauthorized, 1},
		{"unauthorized", http.StatusUnauthorized, "", common.ErrorUnauthorized, 1},
		{"missing object", http.StatusNotFound, "", common.ErrorNotFound, 1},
		{"server error retried", http.StatusInternalServerError, "", common.ErrStorageUnavailable, DefaultAttempts},
		{"unavailable retried", http.StatusServiceUnavailable, "", common.ErrStorageUnavailable, DefaultAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := newTestClient(time.Second).Download(context.Background(), ts.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.attempts, hits.Load())
		})
	}
}

func TestClassification_OtherStatusNotRetried(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	err := newTestClient(time.Second).Upload(context.Background(), ts.URL, []byte("x"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrStorageUnavailable))
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetry_RecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(time.Second).Upload(context.Background(), ts.URL, []byte("x")))
	assert.Equal(t, int32(2), hits.Load())
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newTestClient(time.Second).Download(context.Background(), url)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorageUnavailable))
}

func TestTimeout_NoHang(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	start := time.Now()
	_, err := newTestClient(50*time.Millisecond).Download(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorageUnavailable))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestClient(time.Second).Upload(ctx, ts.URL, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(0).timeout)
}
