package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWebhook(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/fragments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFragmentWebhook_AcceptedAndBroadcast(t *testing.T) {
	srv, _, broadcaster := newTestServer(t, nil)

	// A local subscriber that should see the broadcast after the delay.
	sink := &recordingSink{}
	_, err := broadcaster.Subscribe(context.Background(), "proj-3", sink)
	require.NoError(t, err)

	rec := postWebhook(t, srv, `{
		"type": "INSERT",
		"table": "fragments",
		"schema": "public",
		"record": {"id": "f9", "project_id": "proj-3"}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, time.Second, 5*time.Millisecond)

	frame := string(sink.received()[0])
	assert.Contains(t, frame, `"type":"fragment_updated"`)
	assert.Contains(t, frame, `"projectId":"proj-3"`)
	assert.Contains(t, frame, `"fragmentId":"f9"`)
	assert.Contains(t, frame, `"operation":"insert"`)
}

func TestFragmentWebhook_WrongTableRejected(t *testing.T) {
	srv, _, broadcaster := newTestServer(t, nil)

	sink := &recordingSink{}
	_, err := broadcaster.Subscribe(context.Background(), "proj-3", sink)
	require.NoError(t, err)

	rec := postWebhook(t, srv, `{
		"type": "INSERT",
		"table": "other_table",
		"record": {"id": "f9", "project_id": "proj-3"}
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No broadcast may follow a rejected webhook.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.received())
}

func TestFragmentWebhook_MissingTypeRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := postWebhook(t, srv, `{
		"table": "fragments",
		"record": {"id": "f9", "project_id": "proj-3"}
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFragmentWebhook_MissingRecordFieldsRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	tests := []struct {
		name   string
		record string
	}{
		{name: "missing project_id", record: `{"id": "f9"}`},
		{name: "missing id", record: `{"project_id": "proj-3"}`},
		{name: "empty record", record: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, srv, `{"type":"UPDATE","table":"fragments","record":`+tt.record+`}`)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFragmentWebhook_MalformedBodyRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := postWebhook(t, srv, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFragmentWebhook_StatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/fragments", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
