package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/queue"
	"slot-swap-api/internal/swap"
)

// SwapHandler exposes the swap protocol over HTTP. All business
// validation lives in the engine; the handler binds input, resolves
// the caller's identity and maps typed errors to status codes.
// Publish, when set, is called with a SwapApprovedEvent after a
// successful approval; publishing is best effort and never fails the
// request.
type SwapHandler struct {
	Engine  *swap.Engine
	Publish func(ctx context.Context, ev queue.SwapApprovedEvent) error
}

func NewSwapHandler(engine *swap.Engine) *SwapHandler {
	if engine == nil {
		panic("nil engine passed to NewSwapHandler")
	}
	return &SwapHandler{Engine: engine}
}

type createSwapReq struct {
	TargetSlotID  string `json:"target_slot_id"`
	OfferedSlotID string `json:"offered_slot_id"`
	Message       string `json:"message"`
}

type setStatusReq struct {
	Status string `json:"status"` // APPROVE | REJECT
}

// CreateRequest handles POST /v1/swaps/request.
func (h *SwapHandler) CreateRequest(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSwapReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TargetSlotID == "" || req.OfferedSlotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "both slots are required"})
	}

	view, err := h.Engine.CreateRequest(c.Request().Context(), email, req.TargetSlotID, req.OfferedSlotID, req.Message)
	if err != nil {
		return writeSwapErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"request": view})
}

// Sent handles GET /v1/swaps/sent.
func (h *SwapHandler) Sent(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.Engine.SentBy(c.Request().Context(), email)
	if err != nil {
		return writeSwapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": views})
}

// Received handles GET /v1/swaps/received: pending requests targeting
// the caller's slots.
func (h *SwapHandler) Received(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.Engine.ReceivedBy(c.Request().Context(), email)
	if err != nil {
		return writeSwapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": views})
}

// History handles GET /v1/swaps/history: resolved requests involving
// the caller on either side.
func (h *SwapHandler) History(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.Engine.History(c.Request().Context(), email)
	if err != nil {
		return writeSwapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": views})
}

// SwappableSlots handles GET /v1/swaps/slots: every slot currently
// offerable in a swap. The route sits behind the response cache.
func (h *SwapHandler) SwappableSlots(c echo.Context) error {
	if identity(c) == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slots, err := h.Engine.SwappableSlots(c.Request().Context())
	if err != nil {
		return writeSwapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// SetStatus handles PUT /v1/swaps/:id/status with APPROVE or REJECT.
func (h *SwapHandler) SetStatus(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var (
		view *swap.RequestView
		err  error
	)
	switch strings.ToUpper(strings.TrimSpace(req.Status)) {
	case "APPROVE":
		view, err = h.Engine.Approve(c.Request().Context(), email, c.Param("id"))
	case "REJECT":
		view, err = h.Engine.Reject(c.Request().Context(), email, c.Param("id"))
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "use 'APPROVE' or 'REJECT'"})
	}
	if err != nil {
		return writeSwapErr(c, err)
	}

	if view.Status == model.RequestStatusApproved && h.Publish != nil {
		h.publishApproved(view)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": view})
}

// Cancel handles PUT /v1/swaps/:id/cancel.
func (h *SwapHandler) Cancel(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	view, err := h.Engine.Cancel(c.Request().Context(), email, c.Param("id"))
	if err != nil {
		return writeSwapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": view})
}

// publishApproved emits the swap.approved event in the background so
// broker outages cannot slow down or fail the approval response.
func (h *SwapHandler) publishApproved(view *swap.RequestView) {
	ev := queue.SwapApprovedEvent{
		RequestID:      view.ID,
		TargetSlotID:   view.TargetSlotID,
		OfferedSlotID:  view.OfferedSlotID,
		RequesterEmail: view.RequesterEmail,
		TargetOwner:    view.TargetOwnerEmail,
		ApprovedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if view.TargetSlot != nil {
		ev.TargetSlotName = view.TargetSlot.Name
		ev.TargetStartsAt = view.TargetSlot.StartTime.Format(time.RFC3339)
		ev.TargetEndsAt = view.TargetSlot.EndTime.Format(time.RFC3339)
	}
	if view.OfferedSlot != nil {
		ev.OfferedSlotName = view.OfferedSlot.Name
		ev.OfferedStartsAt = view.OfferedSlot.StartTime.Format(time.RFC3339)
		ev.OfferedEndsAt = view.OfferedSlot.EndTime.Format(time.RFC3339)
	}
	publish := h.Publish
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = publish(ctx, ev)
	}()
}
