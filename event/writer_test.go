package event

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterSender_Send(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSender(&buf)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Send(context.Background(), Record{Timestamp: ts, Data: Fields{"name": "INSERT"}}))
	require.NoError(t, s.Send(context.Background(), Record{Timestamp: ts, Data: Fields{"name": "SELECT"}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got struct {
		Time time.Time      `json:"time"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.True(t, ts.Equal(got.Time))
	assert.Equal(t, "INSERT", got.Data["name"])
}

func TestWriterSender_WriteError(t *testing.T) {
	err := NewWriterSender(failingWriter{}).Send(context.Background(), Record{Data: Fields{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
