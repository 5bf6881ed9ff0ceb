package sse

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anujgoenka9/autocoder/internal/domain"
)

func TestFrame(t *testing.T) {
	framed := Frame([]byte(`{"type":"connected"}`))
	assert.Equal(t, "data: {\"type\":\"connected\"}\n\n", string(framed))
}

func TestEncode_ConnectedEventShape(t *testing.T) {
	framed, err := Encode(domain.ConnectedEvent("proj-1"))
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"connected\",\"projectId\":\"proj-1\"}\n\n", string(framed))
}

func TestStreamWriter_SendWritesAndFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	writer, err := NewStreamWriter(rec)
	require.NoError(t, err)

	require.NoError(t, writer.Send(Frame([]byte(`{"a":1}`))))

	assert.Equal(t, "data: {\"a\":1}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestStreamWriter_SendAfterCloseFails(t *testing.T) {
	rec := httptest.NewRecorder()
	writer, err := NewStreamWriter(rec)
	require.NoError(t, err)

	writer.Close()

	err = writer.Send(Frame([]byte(`{}`)))
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Empty(t, rec.Body.String())
}

// plainWriter deliberately lacks http.Flusher.
type plainWriter struct{ http.ResponseWriter }

func TestNewStreamWriter_RequiresFlusher(t *testing.T) {
	_, err := NewStreamWriter(plainWriter{})
	assert.Error(t, err)
}
