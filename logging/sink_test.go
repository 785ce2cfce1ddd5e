package logging

import (
	"bytes"
	"testing"

	"github.com/auditmos/actionkit/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewEventSink(newJSONLogger(&buf, DEBUG), "users", event.MaskAll)

	err := sink.Log(
		event.Error("too short").At("name").WithCode("too_short").WithDetail("min", 3),
		event.Warning("slow"),
		event.Success("created"),
	)
	require.NoError(t, err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "users", lines[0]["component"])
	fields := lines[0]["fields"].(map[string]any)
	assert.Equal(t, "name", fields["path"])
	assert.Equal(t, "too_short", fields["code"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "info", lines[2]["level"])
	assert.Equal(t, "success", lines[2]["op"])
}

func TestEventSink_MaskAndValidation(t *testing.T) {
	var buf bytes.Buffer
	sink := NewEventSink(newJSONLogger(&buf, DEBUG), "users", event.MaskOf(event.TypeError))

	require.NoError(t, sink.Log(event.Info("hidden")))
	assert.Zero(t, buf.Len())

	assert.Error(t, sink.Log(event.Error("x"), event.Event{}))
	assert.Zero(t, buf.Len())
}
