package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
	"github.com/KrishTanna28/SlotSwapper/internal/notify"
	"github.com/KrishTanna28/SlotSwapper/internal/service"
)

// Server exposes the slot and swap operations over HTTP and WebSocket.
// Routes keep the paths of the original frontend contract.
type Server struct {
	slots     *service.SlotService
	swaps     *service.SwapService
	hub       *notify.Hub
	validate  *validator.Validate
	logger    *zap.Logger
	jwtSecret string
	mux       *http.ServeMux
}

func NewServer(
	slots *service.SlotService,
	swaps *service.SwapService,
	hub *notify.Hub,
	jwtSecret string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		slots:     slots,
		swaps:     swaps,
		hub:       hub,
		validate:  validator.New(),
		logger:    logger,
		jwtSecret: jwtSecret,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("GET /api/event/{$}", s.withAuth(s.handleListMySlots))
	s.mux.HandleFunc("POST /api/event/create", s.withAuth(s.handleCreateSlot))
	s.mux.HandleFunc("PUT /api/event/update/{id}", s.withAuth(s.handleUpdateSlot))
	s.mux.HandleFunc("DELETE /api/event/delete/{id}", s.withAuth(s.handleDeleteSlot))

	s.mux.HandleFunc("GET /api/swappableSlots", s.withAuth(s.handleSwappableSlots))
	s.mux.HandleFunc("POST /api/swapRequest", s.withAuth(s.handleProposeSwap))
	s.mux.HandleFunc("POST /api/respondToSwap/{requestId}", s.withAuth(s.handleRespondToSwap))
	s.mux.HandleFunc("GET /api/mySwapRequests", s.withAuth(s.handleMySwapRequests))

	s.mux.HandleFunc("GET /ws", s.withAuth(s.handleWebSocket))
}

// --- Slots ---

type createSlotRequest struct {
	Title       string    `json:"title" validate:"required,min=3"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Status      string    `json:"status" validate:"omitempty,oneof=BUSY SWAPPABLE"`
}

func (s *Server) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if !s.bind(w, r, &req) {
		return
	}

	slot, err := s.slots.Create(r.Context(), CallerID(r.Context()), service.CreateSlotInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      model.SlotStatus(req.Status),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (s *Server) handleListMySlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.slots.ListMine(r.Context(), CallerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(slots))
}

type updateSlotRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Status      *string    `json:"status" validate:"omitempty,oneof=BUSY SWAPPABLE"`
}

func (s *Server) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateSlotRequest
	if !s.bind(w, r, &req) {
		return
	}

	patch := model.SlotPatch{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
	if req.Status != nil {
		status := model.SlotStatus(*req.Status)
		patch.Status = &status
	}

	slot, err := s.slots.Update(r.Context(), CallerID(r.Context()), slotID, patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *Server) handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.slots.Delete(r.Context(), CallerID(r.Context()), slotID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Slot deleted successfully"})
}

func (s *Server) handleSwappableSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.slots.ListSwappable(r.Context(), CallerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(slots))
}

// --- Swaps ---

type proposeSwapRequest struct {
	MySlotID    string `json:"my_slot_id" validate:"required,uuid"`
	TheirSlotID string `json:"their_slot_id" validate:"required,uuid"`
}

func (s *Server) handleProposeSwap(w http.ResponseWriter, r *http.Request) {
	var req proposeSwapRequest
	if !s.bind(w, r, &req) {
		return
	}
	mySlotID := uuid.MustParse(req.MySlotID)
	theirSlotID := uuid.MustParse(req.TheirSlotID)

	swap, err := s.swaps.ProposeSwap(r.Context(), CallerID(r.Context()), mySlotID, theirSlotID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, swap)
}

type respondToSwapRequest struct {
	Action string `json:"action" validate:"required,oneof=ACCEPT REJECT"`
}

func (s *Server) handleRespondToSwap(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathUUID(w, r, "requestId")
	if !ok {
		return
	}
	var req respondToSwapRequest
	if !s.bind(w, r, &req) {
		return
	}

	swap, err := s.swaps.RespondToSwap(r.Context(), CallerID(r.Context()), requestID, model.SwapAction(req.Action))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swap)
}

type swapRequestView struct {
	*model.SwapRequest
	CounterpartyID string `json:"counterparty_id"`
}

func (s *Server) handleMySwapRequests(w http.ResponseWriter, r *http.Request) {
	callerID := CallerID(r.Context())
	requests, err := s.swaps.ListForParticipant(r.Context(), callerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	views := lo.Map(requests, func(req *model.SwapRequest, _ int) swapRequestView {
		return swapRequestView{
			SwapRequest:    req,
			CounterpartyID: req.CounterpartyOf(callerID),
		}
	})
	writeJSON(w, http.StatusOK, views)
}

// --- Helpers ---

// bind decodes and validates the JSON body; it writes the error response
// itself and reports whether the handler should continue.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// orEmpty keeps list responses as [] instead of null.
func orEmpty(slots []*model.Slot) []*model.Slot {
	if slots == nil {
		return []*model.Slot{}
	}
	return slots
}
