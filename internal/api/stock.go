package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/knjigarna/internal/store"
)

// StockHandler handles stock levels, reservations and the movement ledger.
type StockHandler struct {
	DB *sqlx.DB
}

type adjustRequest struct {
	ItemID     uuid.UUID `json:"item_id"`
	LocationID uuid.UUID `json:"location_id"`
	Kind       string    `json:"kind"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
}

type minimumRequest struct {
	ItemID     uuid.UUID `json:"item_id"`
	LocationID uuid.UUID `json:"location_id"`
	Minimum    int       `json:"minimum"`
}

type reserveRequest struct {
	ItemID     uuid.UUID  `json:"item_id"`
	LocationID uuid.UUID  `json:"location_id"`
	Quantity   int        `json:"quantity"`
	SaleID     *uuid.UUID `json:"sale_id"`
}

// List handles GET /api/stock.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	levels, err := store.ListStock(r.Context(), h.DB, locationID)
	if err != nil {
		storeError(w, "list stock", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(levels))
}

// ListLow handles GET /api/stock/low.
func (h *StockHandler) ListLow(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	levels, err := store.ListLowStock(r.Context(), h.DB, locationID)
	if err != nil {
		storeError(w, "list low stock", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(levels))
}

// Adjust handles POST /api/stock/adjust. Quantity is a magnitude for IN and
// OUT and a signed change for ADJUST.
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := store.Adjust(r.Context(), h.DB, store.Adjustment{
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		Kind:       req.Kind,
		Delta:      req.Quantity,
		Reason:     req.Reason,
		By:         actor(r),
	})
	if err != nil {
		storeError(w, "adjust stock", err)
		return
	}

	slog.Info("stock adjusted", "user", GetClaims(r.Context()).Username,
		"item", m.ItemID, "location", m.LocationID, "delta", m.Delta, "reason", m.Reason)
	jsonResponse(w, http.StatusCreated, m)
}

// SetMinimum handles PUT /api/stock/minimum.
func (h *StockHandler) SetMinimum(w http.ResponseWriter, r *http.Request) {
	var req minimumRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetMinimum(r.Context(), h.DB, req.ItemID, req.LocationID, req.Minimum); err != nil {
		storeError(w, "set minimum", err)
		return
	}

	level, err := store.GetStockLevel(r.Context(), h.DB, req.ItemID, req.LocationID)
	if err != nil {
		storeError(w, "get stock level", err)
		return
	}
	jsonResponse(w, http.StatusOK, level)
}

// Reserve handles POST /api/stock/reservations.
func (h *StockHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := store.Reserve(r.Context(), h.DB, req.ItemID, req.LocationID, req.Quantity, req.SaleID)
	if err != nil {
		storeError(w, "reserve stock", err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// GetReservation handles GET /api/stock/reservations/{id}.
func (h *StockHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	res, err := store.GetReservation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, "get reservation", err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Release handles POST /api/stock/reservations/{id}/release.
func (h *StockHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := store.Release(r.Context(), h.DB, id); err != nil {
		storeError(w, "release reservation", err)
		return
	}

	res, err := store.GetReservation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, "get reservation", err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Movements handles GET /api/stock/movements.
func (h *StockHandler) Movements(w http.ResponseWriter, r *http.Request) {
	var f store.MovementFilter
	var ok bool
	if f.ItemID, ok = queryID(w, r, "item_id"); !ok {
		return
	}
	if f.LocationID, ok = queryID(w, r, "location_id"); !ok {
		return
	}
	if f.SaleItemID, ok = queryID(w, r, "sale_item_id"); !ok {
		return
	}
	if f.CountID, ok = queryID(w, r, "count_id"); !ok {
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}

	movements, err := store.ListMovements(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, "list movements", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(movements))
}
