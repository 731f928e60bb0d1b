package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/whiteboard/internal/model"
)

func TestEncode_ShapeRelay(t *testing.T) {
	frame, err := Encode(EventShapeAdded, ShapeRelay{
		Shape:  model.Shape{ID: "R1", Geometry: &model.Rectangle{Width: 10, Height: 20}},
		UserID: "sess-a",
	})
	require.NoError(t, err)

	var raw struct {
		Event string `json:"event"`
		Data  struct {
			Shape  map[string]any `json:"shape"`
			UserID string         `json:"userId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &raw))
	assert.Equal(t, "shape-added", raw.Event)
	assert.Equal(t, "sess-a", raw.Data.UserID)
	assert.Equal(t, "rectangle", raw.Data.Shape["type"])
	assert.Equal(t, "R1", raw.Data.Shape["id"])
}

func TestEncode_NilPayloadOmitsData(t *testing.T) {
	frame, err := Encode(EventPong, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"pong"}`, string(frame))
}

func TestEnvelopeDecode(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"event":"join-room","data":{"roomId":"r","username":"ann"}}`), &env))

	var req JoinRoomRequest
	require.NoError(t, env.Decode(&req))
	assert.Equal(t, JoinRoomRequest{RoomID: "r", Username: "ann"}, req)
}

func TestEnvelopeDecode_MissingData(t *testing.T) {
	env := Envelope{Event: EventCanvasCleared}
	var req ToolRequest
	assert.NoError(t, env.Decode(&req))
	assert.Equal(t, "", req.Tool)
}

func TestDrawingRelay_UsernameOnlyWhenSet(t *testing.T) {
	start, err := json.Marshal(DrawingRelay{UserID: "u", Username: "ann", DrawingData: json.RawMessage(`{"points":[1,2]}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u","username":"ann","drawingData":{"points":[1,2]}}`, string(start))

	progress, err := json.Marshal(DrawingRelay{UserID: "u", DrawingData: json.RawMessage(`[]`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u","drawingData":[]}`, string(progress))
}

func TestIsDrawingEvent(t *testing.T) {
	assert.True(t, IsDrawingEvent(EventDrawingProgress))
	assert.False(t, IsDrawingEvent(EventCursorMove))
}
