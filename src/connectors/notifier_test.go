package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(context.Context, string, string) error {
	c.n++
	return nil
}

func TestPushoverNotifierPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "app", r.PostForm.Get("token"))
		assert.Equal(t, "usr", r.PostForm.Get("user"))
		assert.Equal(t, "Top Candidate", r.PostForm.Get("title"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":1,"request":"abc"}`))
	}))
	defer srv.Close()

	n, err := NewPushoverNotifier(srv.URL, "app", "usr")
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), "Top Candidate", "AAPL score 110.0"))
}

func TestPushoverNotifierReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":0,"errors":["user identifier is invalid"]}`))
	}))
	defer srv.Close()

	n, err := NewPushoverNotifier(srv.URL, "app", "usr")
	require.NoError(t, err)
	err = n.Notify(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user identifier is invalid")

	_, err = NewPushoverNotifier(srv.URL, "", "usr")
	require.Error(t, err)
}

func TestTelegramNotifierSendsMessage(t *testing.T) {
	var text atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"), r.URL.Path)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		text.Store(body["text"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(srv.URL, "123:abc", 42)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), "Top Candidate", "AAPL score 110.0"))
	assert.Equal(t, "*Top Candidate*\nAAPL score 110.0", text.Load())

	_, err = NewTelegramNotifier(srv.URL, "123:abc", 0)
	require.Error(t, err)
}

func TestThrottledNotifierDropsRepeats(t *testing.T) {
	inner := &countingNotifier{}
	n := NewThrottledNotifier(inner, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, "Top Candidate", "a"))
	require.NoError(t, n.Notify(ctx, "Top Candidate", "b"))
	require.NoError(t, n.Notify(ctx, "Flatten", "c"))
	assert.Equal(t, 2, inner.n)
}

func TestNewNotifierSelectsImplementation(t *testing.T) {
	log, hook := test.NewNullLogger()

	n, err := NewNotifier("log", Config{}, logrus.NewEntry(log))
	require.NoError(t, err)
	require.IsType(t, &LogNotifier{}, n)
	require.NoError(t, n.Notify(context.Background(), "Top Candidate", "AAPL score 110.0"))
	assert.Equal(t, "AAPL score 110.0", hook.LastEntry().Message)

	n, err = NewNotifier("log", Config{NotifyMinInterval: time.Minute}, nil)
	require.NoError(t, err)
	require.IsType(t, &ThrottledNotifier{}, n)

	_, err = NewNotifier("pushover", Config{}, nil)
	require.Error(t, err)
	_, err = NewNotifier("carrier-pigeon", Config{}, nil)
	require.Error(t, err)
}
