package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// SalesHandler handles the sale lifecycle from an open basket to a
// finalized, cancelled or reversed sale.
type SalesHandler struct {
	DB *sqlx.DB
}

type openSaleRequest struct {
	LocationID uuid.UUID  `json:"location_id"`
	CustomerID *uuid.UUID `json:"customer_id"`
	Origin     string     `json:"origin"`
	Note       string     `json:"note"`
}

type saleItemRequest struct {
	ItemID    uuid.UUID        `json:"item_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type freightRequest struct {
	Carrier             string          `json:"carrier"`
	OriginPostcode      string          `json:"origin_postcode"`
	DestinationPostcode string          `json:"destination_postcode"`
	Value               decimal.Decimal `json:"value"`
	LeadDays            int             `json:"lead_days"`
	TrackingCode        string          `json:"tracking_code"`
}

type paymentRequest struct {
	MethodID  uuid.UUID       `json:"method_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// List handles GET /api/sales.
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	sales, err := store.ListSales(r.Context(), h.DB, r.URL.Query().Get("status"))
	if err != nil {
		storeError(w, "list sales", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(sales))
}

// Open handles POST /api/sales.
func (h *SalesHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := store.OpenSale(r.Context(), h.DB, store.NewSale{
		CustomerID: req.CustomerID,
		ClerkID:    actor(r),
		LocationID: req.LocationID,
		Origin:     req.Origin,
		Note:       req.Note,
	})
	if err != nil {
		storeError(w, "open sale", err)
		return
	}

	slog.Info("sale opened", "user", GetClaims(r.Context()).Username, "sale", s.Code)
	jsonResponse(w, http.StatusCreated, s)
}

// Get handles GET /api/sales/{id}. The id may also be a sale code.
func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	var (
		s   *model.Sale
		err error
	)
	if id, perr := uuid.Parse(r.PathValue("id")); perr == nil {
		s, err = store.GetSale(r.Context(), h.DB, id)
	} else {
		s, err = store.GetSaleByCode(r.Context(), h.DB, r.PathValue("id"))
	}
	if err != nil {
		storeError(w, "get sale", err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// line turns a request into a sale line, pricing it at the item's list
// price when the request leaves the price out.
func (h *SalesHandler) line(r *http.Request, req saleItemRequest) (store.Line, error) {
	l := store.Line{ItemID: req.ItemID, Quantity: req.Quantity, Discount: req.Discount}
	if req.UnitPrice != nil {
		l.UnitPrice = *req.UnitPrice
		return l, nil
	}
	item, err := store.GetItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		return l, err
	}
	l.UnitPrice = item.ListPrice
	return l, nil
}

// AddItem handles POST /api/sales/{id}/items.
func (h *SalesHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req saleItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.line(r, req)
	if err != nil {
		storeError(w, "add item", err)
		return
	}

	item, err := store.AddItem(r.Context(), h.DB, id, l)
	if err != nil {
		storeError(w, "add item", err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/sales/{id}/items/{itemId}.
func (h *SalesHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	var req saleItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.line(r, req)
	if err != nil {
		storeError(w, "update item", err)
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, id, itemID, l)
	if err != nil {
		storeError(w, "update item", err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/sales/{id}/items/{itemId}.
func (h *SalesHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	if err := store.RemoveItem(r.Context(), h.DB, id, itemID); err != nil {
		storeError(w, "remove item", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item removed"})
}

// ApplyCoupon handles POST /api/sales/{id}/coupons.
func (h *SalesHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req couponRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	applied, err := store.ApplyCoupon(r.Context(), h.DB, id, req.Code)
	if err != nil {
		storeError(w, "apply coupon", err)
		return
	}
	jsonResponse(w, http.StatusOK, applied)
}

// RemoveCoupon handles DELETE /api/sales/{id}/coupons/{code}.
func (h *SalesHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := store.RemoveCoupon(r.Context(), h.DB, id, r.PathValue("code")); err != nil {
		storeError(w, "remove coupon", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "coupon removed"})
}

// SetFreight handles PUT /api/sales/{id}/freight.
func (h *SalesHandler) SetFreight(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req freightRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := store.SetFreight(r.Context(), h.DB, id, model.Freight{
		Carrier:             req.Carrier,
		OriginPostcode:      req.OriginPostcode,
		DestinationPostcode: req.DestinationPostcode,
		Value:               req.Value,
		LeadDays:            req.LeadDays,
		TrackingCode:        req.TrackingCode,
	})
	if err != nil {
		storeError(w, "set freight", err)
		return
	}
	jsonResponse(w, http.StatusOK, f)
}

// RecordPayment handles POST /api/sales/{id}/payments.
func (h *SalesHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := store.RecordPayment(r.Context(), h.DB, id, store.PaymentInput{
		MethodID:   req.MethodID,
		Amount:     req.Amount,
		Reference:  req.Reference,
		RecordedBy: actor(r),
	})
	if err != nil {
		storeError(w, "record payment", err)
		return
	}

	slog.Info("payment recorded", "user", GetClaims(r.Context()).Username, "sale", id, "amount", p.Amount.StringFixed(2))
	jsonResponse(w, http.StatusCreated, p)
}

// Finalize handles POST /api/sales/{id}/finalize.
func (h *SalesHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s, err := store.Finalize(r.Context(), h.DB, id, actor(r))
	if err != nil {
		storeError(w, "finalize sale", err)
		return
	}

	slog.Info("sale finalized", "user", GetClaims(r.Context()).Username, "sale", s.Code, "total", s.Total.StringFixed(2))
	jsonResponse(w, http.StatusOK, s)
}

// Cancel handles POST /api/sales/{id}/cancel.
func (h *SalesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s, err := store.Cancel(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, "cancel sale", err)
		return
	}

	slog.Info("sale cancelled", "user", GetClaims(r.Context()).Username, "sale", s.Code)
	jsonResponse(w, http.StatusOK, s)
}

// Reverse handles POST /api/sales/{id}/reverse.
func (h *SalesHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s, err := store.Reverse(r.Context(), h.DB, id, actor(r))
	if err != nil {
		storeError(w, "reverse sale", err)
		return
	}

	slog.Warn("sale reversed", "user", GetClaims(r.Context()).Username, "sale", s.Code, "total", s.Total.StringFixed(2))
	jsonResponse(w, http.StatusOK, s)
}
