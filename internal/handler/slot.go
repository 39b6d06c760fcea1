package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/swap"
)

// SlotHandler exposes slot CRUD for owners. It talks to the store
// directly: per the protocol design, cross-slot validation and any
// ownership mutation belong to the swap engine, never to these
// endpoints. Status is derived from the swappable flag so the two can
// not drift apart; clients never submit a raw status.
type SlotHandler struct {
	Store swap.Store
}

func NewSlotHandler(store swap.Store) *SlotHandler {
	if store == nil {
		panic("nil store passed to NewSlotHandler")
	}
	return &SlotHandler{Store: store}
}

type slotCreateReq struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsSwappable bool      `json:"is_swappable"`
}

type slotPatchReq struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	IsSwappable *bool      `json:"is_swappable"`
}

// Create handles POST /v1/slots.
func (h *SlotHandler) Create(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req slotCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}

	slot := &model.Slot{
		OwnerEmail:  email,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		IsSwappable: req.IsSwappable,
		Status:      statusFor(req.IsSwappable),
	}
	if err := h.Store.CreateSlot(c.Request().Context(), slot); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
	}
	return c.JSON(http.StatusCreated, slot)
}

// ListMine handles GET /v1/slots and returns the caller's slots.
func (h *SlotHandler) ListMine(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slots, err := h.Store.SlotsByOwner(c.Request().Context(), email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list slots failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// Get handles GET /v1/slots/:id. Any authenticated user may view a
// slot; browsing precedes requesting a swap.
func (h *SlotHandler) Get(c echo.Context) error {
	if identity(c) == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slot, err := h.Store.GetSlot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load slot failed"})
	}
	if slot == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}
	return c.JSON(http.StatusOK, slot)
}

// Update handles PATCH /v1/slots/:id. Owner only. Toggling
// is_swappable flips status between SWAPPABLE and BUSY; a slot that a
// pending request already targets keeps SWAP_PENDING untouched.
func (h *SlotHandler) Update(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	slot, err := h.Store.GetSlot(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load slot failed"})
	}
	if slot == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}
	if slot.OwnerEmail != email {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req slotPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
		}
		slot.Name = name
	}
	if req.Description != nil {
		slot.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartTime != nil {
		slot.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		slot.EndTime = req.EndTime.UTC()
	}
	if !slot.EndTime.After(slot.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	if req.IsSwappable != nil {
		slot.IsSwappable = *req.IsSwappable
		if slot.Status != model.SlotStatusSwapPending {
			slot.Status = statusFor(slot.IsSwappable)
		}
	}

	if err := h.Store.UpdateSlot(ctx, slot); err != nil {
		if err == swap.ErrVersionMismatch {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot was modified concurrently"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update slot failed"})
	}
	return c.JSON(http.StatusOK, slot)
}

// Delete handles DELETE /v1/slots/:id. Owner only; the removed slot
// is echoed back.
func (h *SlotHandler) Delete(c echo.Context) error {
	email := identity(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	slot, err := h.Store.GetSlot(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load slot failed"})
	}
	if slot == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}
	if slot.OwnerEmail != email {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Store.DeleteSlot(ctx, slot.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete slot failed"})
	}
	return c.JSON(http.StatusOK, slot)
}

func statusFor(swappable bool) string {
	if swappable {
		return model.SlotStatusSwappable
	}
	return model.SlotStatusBusy
}
