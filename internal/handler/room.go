package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/whiteboard/internal/apperror"
	"github.com/sakif/whiteboard/internal/export"
	"github.com/sakif/whiteboard/internal/model"
)

// RoomService is the slice of the registry the HTTP API needs.
// *service.Registry implements it.
type RoomService interface {
	CreateRoom(name string) *model.Room
	GetRoom(id string) (*model.Room, error)
	ListRooms() []model.RoomSummary
}

// RoomHandler serves the request/response room API. Live editing happens
// over the websocket; these endpoints create rooms and let the lobby and
// late joiners look them up.
type RoomHandler struct {
	rooms  RoomService
	logger *slog.Logger
}

func NewRoomHandler(rooms RoomService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, logger: logger}
}

// CreateRoomRequest is the optional body of POST /api/rooms/create.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoomResponse echoes the new room and its id.
type CreateRoomResponse struct {
	RoomID  string      `json:"roomId"`
	Room    *model.Room `json:"room"`
	Message string      `json:"message"`
}

// HandleCreate creates a room.
//
// HTTP: POST /api/rooms/create
// REQUEST BODY (optional): {"name": "Design review"}
// RESPONSE: 201 {"roomId": "...", "room": {...}, "message": "Room created successfully"}
//
// An empty body is allowed; the room then gets the default "Room <id>" name.
func (h *RoomHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid create room JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	room := h.rooms.CreateRoom(req.Name)
	writeJSON(w, http.StatusCreated, CreateRoomResponse{
		RoomID:  room.ID,
		Room:    room,
		Message: "Room created successfully",
	})
}

// HandleGet returns one room with its shapes and users.
//
// HTTP: GET /api/rooms/{roomId}
func (h *RoomHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(chi.URLParam(r, "roomId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// HandleList returns a summary of every room.
//
// HTTP: GET /api/rooms
func (h *RoomHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rooms.ListRooms())
}

// HandleExportPDF renders the room's current canvas as a PDF download.
//
// HTTP: GET /api/rooms/{roomId}/export.pdf
//
// The PDF is rendered into a buffer first so a rendering failure can still
// be reported as JSON instead of a truncated file.
func (h *RoomHandler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(chi.URLParam(r, "roomId"))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.RenderRoom(&buf, room); err != nil {
		h.logger.Error("failed to render room PDF",
			slog.String("roomId", room.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="room-`+room.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write room PDF", slog.String("error", err.Error()))
	}
}
