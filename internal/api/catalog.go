package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

// CatalogHandler serves the reference data sales and stock point at:
// locations, items, customers, coupons and payment methods.
type CatalogHandler struct {
	DB *sqlx.DB
}

type nameRequest struct {
	Name string `json:"name"`
}

type createItemRequest struct {
	Title     string          `json:"title"`
	ISBN      string          `json:"isbn"`
	ListPrice decimal.Decimal `json:"list_price"`
}

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createCouponRequest struct {
	Code            string          `json:"code"`
	Kind            string          `json:"kind"`
	Value           decimal.Decimal `json:"value"`
	MinimumPurchase decimal.Decimal `json:"minimum_purchase"`
	Active          *bool           `json:"active"`
	ValidFrom       *time.Time      `json:"valid_from"`
	ValidUntil      *time.Time      `json:"valid_until"`
}

// ListLocations handles GET /api/locations.
func (h *CatalogHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		storeError(w, "list locations", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(locations))
}

// CreateLocation handles POST /api/locations.
func (h *CatalogHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := store.CreateLocation(r.Context(), h.DB, req.Name)
	if err != nil {
		storeError(w, "create location", err)
		return
	}

	slog.Info("location created", "user", GetClaims(r.Context()).Username, "location", loc.Name)
	jsonResponse(w, http.StatusCreated, loc)
}

// ListItems handles GET /api/items.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		storeError(w, "list items", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// GetItem handles GET /api/items/{id}.
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, "get item", err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// CreateItem handles POST /api/items.
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req.Title, req.ISBN, req.ListPrice)
	if err != nil {
		storeError(w, "create item", err)
		return
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Username, "item", item.Title)
	jsonResponse(w, http.StatusCreated, item)
}

// CreateCustomer handles POST /api/customers.
func (h *CatalogHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := store.CreateCustomer(r.Context(), h.DB, req.Name, req.Email)
	if err != nil {
		storeError(w, "create customer", err)
		return
	}
	jsonResponse(w, http.StatusCreated, customer)
}

// ListCoupons handles GET /api/coupons.
func (h *CatalogHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := store.ListCoupons(r.Context(), h.DB)
	if err != nil {
		storeError(w, "list coupons", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(coupons))
}

// CreateCoupon handles POST /api/coupons. Coupons are active unless the
// request says otherwise.
func (h *CatalogHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	coupon, err := store.CreateCoupon(r.Context(), h.DB, model.Coupon{
		Code:            req.Code,
		Kind:            req.Kind,
		Value:           req.Value,
		MinimumPurchase: req.MinimumPurchase,
		Active:          active,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
	})
	if err != nil {
		storeError(w, "create coupon", err)
		return
	}

	slog.Info("coupon created", "user", GetClaims(r.Context()).Username, "code", coupon.Code)
	jsonResponse(w, http.StatusCreated, coupon)
}

// ListPaymentMethods handles GET /api/payment-methods.
func (h *CatalogHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := store.ListPaymentMethods(r.Context(), h.DB)
	if err != nil {
		storeError(w, "list payment methods", err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(methods))
}

// CreatePaymentMethod handles POST /api/payment-methods.
func (h *CatalogHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method, err := store.CreatePaymentMethod(r.Context(), h.DB, req.Name)
	if err != nil {
		storeError(w, "create payment method", err)
		return
	}
	jsonResponse(w, http.StatusCreated, method)
}
