package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/handler"
	"github.com/sakif/whiteboard/internal/model"
	"github.com/sakif/whiteboard/internal/service"
)

// MockRooms is a hand-written RoomService for handler tests.
type MockRooms struct {
	CreatedName string
	Rooms       map[string]*model.Room
	Summaries   []model.RoomSummary
}

func (m *MockRooms) CreateRoom(name string) *model.Room {
	m.CreatedName = name
	if name == "" {
		name = "Room r-new"
	}
	return &model.Room{ID: "r-new", Name: name, Shapes: []model.Shape{}, Users: []model.Presence{}}
}

func (m *MockRooms) GetRoom(id string) (*model.Room, error) {
	room, ok := m.Rooms[id]
	if !ok {
		return nil, apperror.NotFound("room", id)
	}
	return room, nil
}

func (m *MockRooms) ListRooms() []model.RoomSummary {
	return m.Summaries
}

type fixedStats service.Stats

func (f fixedStats) Stats() service.Stats { return service.Stats(f) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// routed runs the request through a chi router so URL params resolve.
func routed(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(req.Method, pattern, h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRoomHandler_HandleCreate(t *testing.T) {
	t.Run("with name", func(t *testing.T) {
		rooms := &MockRooms{}
		h := handler.NewRoomHandler(rooms, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/rooms/create", bytes.NewBufferString(`{"name":"Design review"}`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var res handler.CreateRoomResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "r-new", res.RoomID)
		assert.Equal(t, "Design review", res.Room.Name)
		assert.Equal(t, "Room created successfully", res.Message)
		assert.Equal(t, "Design review", rooms.CreatedName)
	})

	t.Run("empty body uses default name", func(t *testing.T) {
		rooms := &MockRooms{}
		h := handler.NewRoomHandler(rooms, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/rooms/create", http.NoBody)
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "", rooms.CreatedName)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h := handler.NewRoomHandler(&MockRooms{}, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/rooms/create", bytes.NewBufferString(`{"name":`))
		rr := httptest.NewRecorder()
		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var res handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "validation_error", res.Error)
	})
}

func TestRoomHandler_HandleGet(t *testing.T) {
	rooms := &MockRooms{Rooms: map[string]*model.Room{
		"abc": {ID: "abc", Name: "Retro", Shapes: []model.Shape{}, Users: []model.Presence{}},
	}}
	h := handler.NewRoomHandler(rooms, testLogger())

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/abc", nil)
		rr := routed("/api/rooms/{roomId}", h.HandleGet, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var room model.Room
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
		assert.Equal(t, "Retro", room.Name)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/nope", nil)
		rr := routed("/api/rooms/{roomId}", h.HandleGet, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		var res handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "not_found", res.Error)
		assert.Contains(t, res.Message, "nope")
	})
}

func TestRoomHandler_HandleList(t *testing.T) {
	rooms := &MockRooms{Summaries: []model.RoomSummary{
		{ID: "a", Name: "A", UserCount: 2},
		{ID: "b", Name: "B"},
	}}
	h := handler.NewRoomHandler(rooms, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []model.RoomSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].UserCount)
}

func TestRoomHandler_HandleExportPDF(t *testing.T) {
	rooms := &MockRooms{Rooms: map[string]*model.Room{
		"abc": {ID: "abc", Name: "Retro", Shapes: []model.Shape{
			{ID: "c1", X: 50, Y: 50, Fill: "#FF6B6B", Geometry: &model.Circle{Radius: 20}},
		}},
	}}
	h := handler.NewRoomHandler(rooms, testLogger())

	t.Run("renders pdf", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/abc/export.pdf", nil)
		rr := routed("/api/rooms/{roomId}/export.pdf", h.HandleExportPDF, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "room-abc.pdf")
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("unknown room", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/zzz/export.pdf", nil)
		rr := routed("/api/rooms/{roomId}/export.pdf", h.HandleExportPDF, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	})
}

func TestHealthHandler(t *testing.T) {
	h := handler.NewHealthHandler(fixedStats{ActiveRooms: 3, ActiveUsers: 5}, time.Now().Add(-time.Minute))

	t.Run("health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var res handler.HealthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "healthy", res.Status)
		assert.Equal(t, 3, res.ActiveRooms)
		assert.Equal(t, 5, res.ActiveUsers)
		assert.GreaterOrEqual(t, res.Uptime, 60.0)
	})

	t.Run("test endpoint", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleTest(rr, httptest.NewRequest(http.MethodGet, "/api/test", nil))

		var res map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "API is working", res["message"])
		_, err := time.Parse(time.RFC3339Nano, res["timestamp"])
		assert.NoError(t, err)
	})

	t.Run("index", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleIndex(rr, httptest.NewRequest(http.MethodGet, "/api", nil))

		var res struct {
			AvailableEndpoints []string `json:"availableEndpoints"`
			TotalRooms         int      `json:"totalRooms"`
			TotalUsers         int      `json:"totalUsers"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, handler.Endpoints, res.AvailableEndpoints)
		assert.Equal(t, 3, res.TotalRooms)
		assert.Equal(t, 5, res.TotalUsers)
	})
}

func TestHandleNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	handler.HandleNotFound(rr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "Route not found", res.Message)
}
