package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL+"/", nil)

	raw := `{"id":"e1","learnerId":"l1","eventType":"challenge_passed","source":"api","createdAt":"2026-03-01T12:00:00Z"}`
	require.NoError(t, c.PushEventJSON(context.Background(), []byte(raw)))

	require.Len(t, got.Streams, 1)
	s := got.Streams[0]
	assert.Equal(t, map[string]string{"job": "jsacademy", "event_type": "challenge_passed", "source": "api"}, s.Stream)
	require.Len(t, s.Values, 1)
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, strconv.FormatInt(want, 10), s.Values[0][0])
	assert.Equal(t, raw, s.Values[0][1])
}

func TestPushEventJSON_MalformedIsPushedRaw(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL, nil)

	require.NoError(t, c.PushEventJSON(context.Background(), []byte("not json")))
	require.Len(t, got.Streams, 1)
	assert.Equal(t, map[string]string{"job": "jsacademy"}, got.Streams[0].Stream)
	assert.Equal(t, "not json", got.Streams[0].Values[0][1])
}

func TestPushEvent_SanitizesLabels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL, nil)

	require.NoError(t, c.PushEvent(context.Background(), time.Now(), "line", map[string]string{"source": "web app/v2", "empty": "  "}))
	assert.Equal(t, "web_app_v2", got.Streams[0].Stream["source"])
	_, ok := got.Streams[0].Stream["empty"]
	assert.False(t, ok, "blank labels are dropped")
}

func TestPushEvent_Non2xx(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	err := NewClient(srv.URL, nil).PushEvent(context.Background(), time.Now(), "line", nil)
	assert.Error(t, err)
}

func TestPushEvent_EmptyURL(t *testing.T) {
	err := NewClient("", nil).PushEvent(context.Background(), time.Now(), "line", nil)
	assert.Error(t, err)
}
