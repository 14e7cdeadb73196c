package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/knjigarna/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sqlx.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	catalogHandler := &CatalogHandler{DB: db}
	stockHandler := &StockHandler{DB: db}
	countsHandler := &CountsHandler{DB: db}
	salesHandler := &SalesHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Any authenticated role.
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(h))
	}
	manager := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(requireManager(h)))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(requireAdmin(h)))
	}

	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	handle("POST /api/auth/logout", authHandler.Logout)
	handle("PUT /api/auth/password", authHandler.ChangePassword)

	admin("GET /api/users", usersHandler.List)
	admin("POST /api/users", usersHandler.Create)
	admin("GET /api/users/{id}", usersHandler.Get)
	admin("PUT /api/users/{id}", usersHandler.Update)
	admin("PUT /api/users/{id}/password", usersHandler.ResetPassword)
	admin("DELETE /api/users/{id}", usersHandler.Delete)

	// Catalog: read (all roles), write (manager+). Clerks may register customers.
	handle("GET /api/locations", catalogHandler.ListLocations)
	manager("POST /api/locations", catalogHandler.CreateLocation)
	handle("GET /api/items", catalogHandler.ListItems)
	handle("GET /api/items/{id}", catalogHandler.GetItem)
	manager("POST /api/items", catalogHandler.CreateItem)
	handle("POST /api/customers", catalogHandler.CreateCustomer)
	handle("GET /api/coupons", catalogHandler.ListCoupons)
	manager("POST /api/coupons", catalogHandler.CreateCoupon)
	handle("GET /api/payment-methods", catalogHandler.ListPaymentMethods)
	manager("POST /api/payment-methods", catalogHandler.CreatePaymentMethod)

	handle("GET /api/stock", stockHandler.List)
	handle("GET /api/stock/low", stockHandler.ListLow)
	manager("POST /api/stock/adjust", stockHandler.Adjust)
	manager("PUT /api/stock/minimum", stockHandler.SetMinimum)
	handle("POST /api/stock/reservations", stockHandler.Reserve)
	handle("GET /api/stock/reservations/{id}", stockHandler.GetReservation)
	handle("POST /api/stock/reservations/{id}/release", stockHandler.Release)
	handle("GET /api/stock/movements", stockHandler.Movements)

	handle("GET /api/counts", countsHandler.List)
	manager("POST /api/counts", countsHandler.Open)
	handle("GET /api/counts/{id}", countsHandler.Get)
	handle("POST /api/counts/{id}/items", countsHandler.Record)
	manager("POST /api/counts/{id}/close", countsHandler.Close)

	handle("GET /api/sales", salesHandler.List)
	handle("POST /api/sales", salesHandler.Open)
	handle("GET /api/sales/{id}", salesHandler.Get)
	handle("POST /api/sales/{id}/items", salesHandler.AddItem)
	handle("PUT /api/sales/{id}/items/{itemId}", salesHandler.UpdateItem)
	handle("DELETE /api/sales/{id}/items/{itemId}", salesHandler.RemoveItem)
	handle("POST /api/sales/{id}/coupons", salesHandler.ApplyCoupon)
	handle("DELETE /api/sales/{id}/coupons/{code}", salesHandler.RemoveCoupon)
	handle("PUT /api/sales/{id}/freight", salesHandler.SetFreight)
	handle("POST /api/sales/{id}/payments", salesHandler.RecordPayment)
	handle("POST /api/sales/{id}/finalize", salesHandler.Finalize)
	handle("POST /api/sales/{id}/cancel", salesHandler.Cancel)
	// Returns put stock back on the shelf.
	manager("POST /api/sales/{id}/reverse", salesHandler.Reverse)

	return mux
}
