package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/knjigarna/internal/store"
)

// CountsHandler handles physical inventory count sessions.
type CountsHandler struct {
	DB *sqlx.DB
}

type openCountRequest struct {
	LocationID uuid.UUID `json:"location_id"`
	Note       string    `json:"note"`
}

type recordCountRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// List handles GET /api/counts.
func (h *CountsHandler) List(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	counts, err := store.ListCounts(r.Context(), h.DB, locationID)
	if err != nil {
		storeError(w, "list counts", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(counts))
}

// Open handles POST /api/counts.
func (h *CountsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openCountRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := store.OpenCount(r.Context(), h.DB, req.LocationID, req.Note, actor(r))
	if err != nil {
		storeError(w, "open count", err)
		return
	}

	slog.Info("count opened", "user", GetClaims(r.Context()).Username, "count", c.ID, "location", c.LocationID)
	jsonResponse(w, http.StatusCreated, c)
}

// Get handles GET /api/counts/{id}.
func (h *CountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := store.GetCount(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, "get count", err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Record handles POST /api/counts/{id}/items.
func (h *CountsHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req recordCountRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ci, err := store.RecordCount(r.Context(), h.DB, id, req.ItemID, req.Quantity)
	if err != nil {
		storeError(w, "record count", err)
		return
	}
	jsonResponse(w, http.StatusOK, ci)
}

// Close handles POST /api/counts/{id}/close.
func (h *CountsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := store.CloseCount(r.Context(), h.DB, id, actor(r))
	if err != nil {
		storeError(w, "close count", err)
		return
	}

	slog.Info("count closed", "user", GetClaims(r.Context()).Username, "count", c.ID, "items", len(c.Items))
	jsonResponse(w, http.StatusOK, c)
}
