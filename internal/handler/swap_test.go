package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slot-swap-api/internal/handler"
	"slot-swap-api/internal/model"
	"slot-swap-api/internal/queue"
	"slot-swap-api/internal/repository"
	"slot-swap-api/internal/swap"
)

// call invokes an echo handler directly with an authenticated context,
// the way the JWT middleware would have prepared it.
func call(t *testing.T, h echo.HandlerFunc, method, email, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if email != "" {
		c.Set("email", email)
	}
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

func newSwapFixture(t *testing.T) (*handler.SwapHandler, *swap.Engine, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	engine := swap.NewEngine(store, zap.NewNop())
	return handler.NewSwapHandler(engine), engine, store
}

func seedSwappable(t *testing.T, store *repository.MemoryStore, owner string) *model.Slot {
	t.Helper()
	start := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	s := &model.Slot{
		OwnerEmail:  owner,
		Name:        "on-call",
		StartTime:   start,
		EndTime:     start.Add(4 * time.Hour),
		IsSwappable: true,
		Status:      model.SlotStatusSwappable,
	}
	require.NoError(t, store.CreateSlot(context.Background(), s))
	return s
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestCreateRequestEndpoint(t *testing.T) {
	h, _, store := newSwapFixture(t)
	target := seedSwappable(t, store, "alice@example.com")
	offered := seedSwappable(t, store, "bob@example.com")

	body := fmt.Sprintf(`{"target_slot_id":%q,"offered_slot_id":%q,"message":"take mine"}`, target.ID, offered.ID)
	rec := call(t, h.CreateRequest, http.MethodPost, "bob@example.com", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Request swap.RequestView `json:"request"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RequestStatusPending, resp.Request.Status)
	assert.Equal(t, "alice@example.com", resp.Request.TargetOwnerEmail)
	assert.Equal(t, "take mine", resp.Request.Message)
}

func TestCreateRequestEndpointErrors(t *testing.T) {
	h, _, store := newSwapFixture(t)
	target := seedSwappable(t, store, "alice@example.com")
	offered := seedSwappable(t, store, "bob@example.com")

	t.Run("unauthenticated", func(t *testing.T) {
		rec := call(t, h.CreateRequest, http.MethodPost, "", `{}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("missing slot ids", func(t *testing.T) {
		rec := call(t, h.CreateRequest, http.MethodPost, "bob@example.com", `{"message":"x"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("unknown target", func(t *testing.T) {
		body := fmt.Sprintf(`{"target_slot_id":"missing","offered_slot_id":%q}`, offered.ID)
		rec := call(t, h.CreateRequest, http.MethodPost, "bob@example.com", body, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("target not swappable", func(t *testing.T) {
		busy := seedSwappable(t, store, "alice@example.com")
		busy.IsSwappable = false
		busy.Status = model.SlotStatusBusy
		require.NoError(t, store.UpdateSlot(context.Background(), busy))
		body := fmt.Sprintf(`{"target_slot_id":%q,"offered_slot_id":%q}`, busy.ID, offered.ID)
		rec := call(t, h.CreateRequest, http.MethodPost, "bob@example.com", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
	t.Run("offered slot owned by someone else", func(t *testing.T) {
		body := fmt.Sprintf(`{"target_slot_id":%q,"offered_slot_id":%q}`, target.ID, offered.ID)
		rec := call(t, h.CreateRequest, http.MethodPost, "carol@example.com", body, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSetStatusApprove(t *testing.T) {
	h, engine, store := newSwapFixture(t)
	target := seedSwappable(t, store, "alice@example.com")
	offered := seedSwappable(t, store, "bob@example.com")
	view, err := engine.CreateRequest(context.Background(), "bob@example.com", target.ID, offered.ID, "")
	require.NoError(t, err)

	events := make(chan queue.SwapApprovedEvent, 1)
	h.Publish = func(_ context.Context, ev queue.SwapApprovedEvent) error {
		events <- ev
		return nil
	}

	rec := call(t, h.SetStatus, http.MethodPut, "alice@example.com", `{"status":"approve"}`,
		map[string]string{"id": view.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Request swap.RequestView `json:"request"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RequestStatusApproved, resp.Request.Status)

	select {
	case ev := <-events:
		assert.Equal(t, view.ID, ev.RequestID)
		assert.Equal(t, "bob@example.com", ev.RequesterEmail)
		assert.Equal(t, "alice@example.com", ev.TargetOwner)
	case <-time.After(2 * time.Second):
		t.Fatal("approval event was not published")
	}

	// repeated approval hits the terminal-state guard
	rec = call(t, h.SetStatus, http.MethodPut, "alice@example.com", `{"status":"APPROVE"}`,
		map[string]string{"id": view.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request already processed", decodeErr(t, rec))
}

func TestSetStatusReject(t *testing.T) {
	h, engine, store := newSwapFixture(t)
	target := seedSwappable(t, store, "alice@example.com")
	offered := seedSwappable(t, store, "bob@example.com")
	view, err := engine.CreateRequest(context.Background(), "bob@example.com", target.ID, offered.ID, "")
	require.NoError(t, err)

	t.Run("requester may not decide", func(t *testing.T) {
		rec := call(t, h.SetStatus, http.MethodPut, "bob@example.com", `{"status":"REJECT"}`,
			map[string]string{"id": view.ID})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("unknown verb", func(t *testing.T) {
		rec := call(t, h.SetStatus, http.MethodPut, "alice@example.com", `{"status":"MAYBE"}`,
			map[string]string{"id": view.ID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("target owner rejects", func(t *testing.T) {
		rec := call(t, h.SetStatus, http.MethodPut, "alice@example.com", `{"status":"REJECT"}`,
			map[string]string{"id": view.ID})
		require.Equal(t, http.StatusOK, rec.Code)
		got, err := store.GetSlot(context.Background(), target.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.OwnerEmail)
	})
}

func TestCancelEndpoint(t *testing.T) {
	h, engine, store := newSwapFixture(t)
	target := seedSwappable(t, store, "alice@example.com")
	offered := seedSwappable(t, store, "bob@example.com")
	view, err := engine.CreateRequest(context.Background(), "bob@example.com", target.ID, offered.ID, "")
	require.NoError(t, err)

	rec := call(t, h.Cancel, http.MethodPut, "alice@example.com", ``, map[string]string{"id": view.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h.Cancel, http.MethodPut, "bob@example.com", ``, map[string]string{"id": view.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h.Cancel, http.MethodPut, "bob@example.com", ``, map[string]string{"id": view.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	h, engine, store := newSwapFixture(t)
	target := seedSwappable(t, store, "alice@example.com")
	offered := seedSwappable(t, store, "bob@example.com")
	view, err := engine.CreateRequest(context.Background(), "bob@example.com", target.ID, offered.ID, "")
	require.NoError(t, err)

	var listing struct {
		Requests []swap.RequestView `json:"requests"`
	}

	rec := call(t, h.Sent, http.MethodGet, "bob@example.com", ``, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Requests, 1)
	assert.Equal(t, view.ID, listing.Requests[0].ID)

	rec = call(t, h.Received, http.MethodGet, "alice@example.com", ``, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Requests, 1)

	_, err = engine.Reject(context.Background(), "alice@example.com", view.ID)
	require.NoError(t, err)

	rec = call(t, h.History, http.MethodGet, "alice@example.com", ``, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Requests, 1)
	assert.Equal(t, model.RequestStatusRejected, listing.Requests[0].Status)

	var slots struct {
		Slots []model.Slot `json:"slots"`
	}
	rec = call(t, h.SwappableSlots, http.MethodGet, "carol@example.com", ``, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	assert.Len(t, slots.Slots, 2)
}
