package producer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/media-uniquer/internal/model"
)

func TestEncode(t *testing.T) {
	task := model.Task{ID: "ev1", Filename: "clip.mp4", Kind: model.KindVideo}
	ev := model.NewStatusEvent(task, model.Status{State: model.StateFailed, Progress: 20, Stage: "Error processing video", Error: "ffprobe error: bad"})

	key, data, err := Encode(ev)
	require.NoError(t, err)
	assert.Equal(t, "ev1", string(key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ev1", got["task_id"])
	assert.Equal(t, "video", got["kind"])

	st := got["status"].(map[string]any)
	assert.Equal(t, "FAILED", st["state"])
	assert.Equal(t, "ffprobe error: bad", st["error"])
}
