package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/api"
	"github.com/KrishTanna28/SlotSwapper/internal/model"
	"github.com/KrishTanna28/SlotSwapper/internal/notify"
	"github.com/KrishTanna28/SlotSwapper/internal/repository/memory"
	"github.com/KrishTanna28/SlotSwapper/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	ts  *httptest.Server
	hub *notify.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	hub := notify.NewHub(logger)
	slots := service.NewSlotService(store, store.Slots(), logger)
	swaps := service.NewSwapService(store, store.Slots(), store.SwapRequests(), hub, logger)
	server := api.NewServer(slots, swaps, hub, testSecret, logger)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testServer{ts: ts, hub: hub}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, userID, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) createSlot(t *testing.T, userID, title string, status model.SlotStatus) model.Slot {
	t.Helper()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	resp := s.do(t, userID, http.MethodPost, "/api/event/create", map[string]any{
		"title":      title,
		"start_time": start,
		"end_time":   start.Add(time.Hour),
		"status":     string(status),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Slot](t, resp)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/event/", "/api/swappableSlots", "/api/mySwapRequests"} {
		resp := s.do(t, "", http.MethodGet, path, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}

	// A token signed with the wrong key is rejected too.
	req, err := http.NewRequest(http.MethodGet, s.ts.URL+"/api/event/", nil)
	require.NoError(t, err)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "u1"})
	signed, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := s.ts.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestSlotCRUD(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	slot := s.createSlot(t, "u1", "standup", model.SlotStatusSwappable)
	req.Equal("u1", slot.OwnerID)
	req.Equal(model.SlotStatusSwappable, slot.Status)

	resp := s.do(t, "u1", http.MethodGet, "/api/event/", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	mine := decode[[]model.Slot](t, resp)
	req.Len(mine, 1)

	resp = s.do(t, "u1", http.MethodPut, "/api/event/update/"+slot.ID.String(), map[string]any{
		"status": "BUSY",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	updated := decode[model.Slot](t, resp)
	req.Equal(model.SlotStatusBusy, updated.Status)

	// Someone else's edits and deletes are forbidden.
	resp = s.do(t, "u2", http.MethodPut, "/api/event/update/"+slot.ID.String(), map[string]any{"title": "stolen"})
	req.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	resp = s.do(t, "u2", http.MethodDelete, "/api/event/delete/"+slot.ID.String(), nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, "u1", http.MethodDelete, "/api/event/delete/"+slot.ID.String(), nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, "u1", http.MethodGet, "/api/event/", nil)
	req.Len(decode[[]model.Slot](t, resp), 0)
}

func TestSlotValidation(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	cases := []map[string]any{
		// title too short
		{"title": "ab", "start_time": start, "end_time": start.Add(time.Hour)},
		// end before start
		{"title": "valid title", "start_time": start.Add(time.Hour), "end_time": start},
		// SWAP_PENDING is not a creatable status
		{"title": "valid title", "start_time": start, "end_time": start.Add(time.Hour), "status": "SWAP_PENDING"},
	}
	for i, body := range cases {
		resp := s.do(t, "u1", http.MethodPost, "/api/event/create", body)
		req.Equal(http.StatusBadRequest, resp.StatusCode, "case %d", i)
		resp.Body.Close()
	}
}

func TestSwapFlowOverHTTP(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	slotA := s.createSlot(t, "u1", "morning", model.SlotStatusSwappable)
	slotB := s.createSlot(t, "u2", "afternoon", model.SlotStatusSwappable)

	// The marketplace feed for u2 shows u1's slot only.
	resp := s.do(t, "u2", http.MethodGet, "/api/swappableSlots", nil)
	feed := decode[[]model.Slot](t, resp)
	req.Len(feed, 1)
	req.Equal(slotA.ID, feed[0].ID)

	resp = s.do(t, "u2", http.MethodPost, "/api/swapRequest", map[string]any{
		"my_slot_id":    slotB.ID.String(),
		"their_slot_id": slotA.ID.String(),
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	swap := decode[model.SwapRequest](t, resp)
	req.Equal(model.SwapStatusPending, swap.Status)

	// Deleting a pinned slot conflicts.
	resp = s.do(t, "u1", http.MethodDelete, "/api/event/delete/"+slotA.ID.String(), nil)
	req.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Only the responder may answer.
	resp = s.do(t, "u2", http.MethodPost, "/api/respondToSwap/"+swap.ID.String(), map[string]any{"action": "ACCEPT"})
	req.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, "u1", http.MethodPost, "/api/respondToSwap/"+swap.ID.String(), map[string]any{"action": "ACCEPT"})
	req.Equal(http.StatusOK, resp.StatusCode)
	resolved := decode[model.SwapRequest](t, resp)
	req.Equal(model.SwapStatusAccepted, resolved.Status)

	// A second response is rejected as already resolved.
	resp = s.do(t, "u1", http.MethodPost, "/api/respondToSwap/"+swap.ID.String(), map[string]any{"action": "REJECT"})
	req.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Both participants see the request in their history.
	resp = s.do(t, "u2", http.MethodGet, "/api/mySwapRequests", nil)
	history := decode[[]map[string]any](t, resp)
	req.Len(history, 1)
	req.Equal("u1", history[0]["counterparty_id"])

	// Ownership changed hands.
	resp = s.do(t, "u2", http.MethodGet, "/api/event/", nil)
	mine := decode[[]model.Slot](t, resp)
	req.Len(mine, 2)
}

func TestUnknownSwapRequestIs404(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, "u1", http.MethodPost, "/api/respondToSwap/11111111-1111-1111-1111-111111111111", map[string]any{"action": "ACCEPT"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestWebSocketReceivesSwapNotification(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	slotA := s.createSlot(t, "u1", "morning", model.SlotStatusSwappable)
	slotB := s.createSlot(t, "u2", "afternoon", model.SlotStatusSwappable)

	wsURL := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws?token=" + token(t, "u1")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The session registers inside the handler goroutine after the
	// handshake; wait for it before triggering the notification.
	require.Eventually(t, func() bool { return s.hub.SessionCount("u1") == 1 }, time.Second, 10*time.Millisecond)

	httpResp := s.do(t, "u2", http.MethodPost, "/api/swapRequest", map[string]any{
		"my_slot_id":    slotB.ID.String(),
		"their_slot_id": slotA.ID.String(),
	})
	req.Equal(http.StatusCreated, httpResp.StatusCode)
	swap := decode[model.SwapRequest](t, httpResp)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var n model.Notification
	req.NoError(conn.ReadJSON(&n))
	req.Equal(model.NotificationNewSwapRequest, n.Kind)
	req.Equal(swap.ID, n.SwapRequestID)
	req.Equal("You have a new swap request", n.Message)
}
