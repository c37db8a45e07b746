package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_GetSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "engagic-test/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	f := New("engagic-test/1.0", 5*time.Second)
	body, err := f.GetBytes(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestFetcher_RetriesOn500(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f := New("engagic-test/1.0", 5*time.Second)
	body, err := f.GetBytes(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 2, attempts)
}

func TestFetcher_GivesUpAfterMaxAttempts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f := New("engagic-test/1.0", 5*time.Second)
	_, err := f.GetBytes(context.Background(), ts.URL)
	require.Error(t, err)
}

func TestDownloadWithLimit_AbortsMidStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 16*1024)
		for i := 0; i < 4; i++ {
			w.Write(chunk)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	defer ts.Close()

	f := New("engagic-test/1.0", 5*time.Second)
	_, err := f.DownloadWithLimit(context.Background(), ts.URL, 32*1024)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxSizeExceeded)
}

func TestDownloadWithLimit_UnboundedWhenZero(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("some bytes"))
	}))
	defer ts.Close()

	f := New("engagic-test/1.0", 5*time.Second)
	body, err := f.DownloadWithLimit(context.Background(), ts.URL, 0)
	require.NoError(t, err)
	assert.Equal(t, "some bytes", string(body))
}
