package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/api/middleware"
	"github.com/example/grocery-sync/internal/command"
	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
	"github.com/example/grocery-sync/internal/query"
	"github.com/example/grocery-sync/internal/realtime"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.Named("api"),
	}
}

// Order Handlers

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, size, err := pagination(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.ListOrders(f, page, size))
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.queryHandler.GetOrder(chi.URLParam(r, "id"))
	if !ok {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// CreateOrder accepts an order document. Only the customer, items, address,
// payment method and notes are taken from it; pricing is recomputed.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body order.Order
	if !decodeJSON(w, r, &body) {
		return
	}
	cmd := command.CreateOrder{
		CustomerID:    body.Customer.ID,
		Items:         body.Items,
		PaymentMethod: body.Payment.Method,
		Notes:         body.Notes,
	}
	if body.DeliveryAddress.Street != "" {
		addr := body.DeliveryAddress
		cmd.DeliveryAddress = &addr
	}

	o, err := h.cmdHandler.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status order.Status `json:"status"`
		Note   string       `json:"note"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), command.UpdateOrderStatus{
		OrderID: chi.URLParam(r, "id"),
		Status:  body.Status,
		Note:    body.Note,
		Actor:   actor(r),
	})
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	o, err := h.cmdHandler.CancelOrder(r.Context(), command.CancelOrder{
		OrderID: chi.URLParam(r, "id"),
		Reason:  body.Reason,
		Actor:   actor(r),
	})
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) AssignDelivery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DriverID string `json:"driver_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	o, err := h.cmdHandler.AssignDelivery(r.Context(), command.AssignDelivery{
		OrderID:  chi.URLParam(r, "id"),
		DriverID: body.DriverID,
		Actor:    actor(r),
	})
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) OrderStatistics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.Statistics())
}

// Product Handlers

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, size, err := pagination(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.ListProducts(f, page, size))
}

func (h *Handlers) ListCategories(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.Categories())
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryHandler.GetProduct(chi.URLParam(r, "id"))
	if !ok {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p inventory.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	created, err := h.cmdHandler.CreateProduct(r.Context(), p)
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p inventory.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	updated, err := h.cmdHandler.UpdateProduct(r.Context(), p)
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var adj inventory.Adjustment
	if !decodeJSON(w, r, &adj) {
		return
	}
	p, err := h.cmdHandler.AdjustStock(r.Context(), command.AdjustStock{
		ProductID:  chi.URLParam(r, "id"),
		Adjustment: adj,
	})
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Delivery Handlers

func (h *Handlers) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	f, err := deliveryFilter(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, size, err := pagination(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.ListDeliveries(f, page, size))
}

func (h *Handlers) ListDrivers(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.Drivers())
}

func (h *Handlers) GetDelivery(w http.ResponseWriter, r *http.Request) {
	d, ok := h.queryHandler.GetDelivery(chi.URLParam(r, "id"))
	if !ok {
		respondJSONError(w, "Delivery not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handlers) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status delivery.Status `json:"status"`
		Note   string          `json:"note"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := h.cmdHandler.UpdateDeliveryStatus(r.Context(), command.UpdateDeliveryStatus{
		DeliveryID: chi.URLParam(r, "id"),
		Status:     body.Status,
		Note:       body.Note,
		Actor:      actor(r),
	})
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handlers) UpdateDriverLocation(w http.ResponseWriter, r *http.Request) {
	var loc delivery.Location
	if !decodeJSON(w, r, &loc) {
		return
	}
	err := h.cmdHandler.UpdateDriverLocation(r.Context(), command.UpdateDriverLocation{
		DeliveryID: chi.URLParam(r, "id"),
		Location:   loc,
	})
	if err != nil {
		h.respondCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Customer Handlers

func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := customer.Filter{Search: q.Get("search"), Status: q.Get("status")}
	page, size, err := pagination(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.ListCustomers(f, page, size))
}

func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.queryHandler.GetCustomer(chi.URLParam(r, "id"))
	if !ok {
		respondJSONError(w, "Customer not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.queryHandler.GetCustomer(id); !ok {
		respondJSONError(w, "Customer not found", http.StatusNotFound)
		return
	}
	page, size, err := pagination(r)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.CustomerOrders(id, page, size))
}

// System Handlers

func (h *Handlers) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	var cmd command.RaiseAlert
	if !decodeJSON(w, r, &cmd) {
		return
	}
	if err := h.cmdHandler.RaiseAlert(r.Context(), cmd); err != nil {
		h.respondCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Helper functions

func actor(r *http.Request) string {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return ""
	}
	if claims.Name != "" {
		return claims.Name
	}
	return claims.Email
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps command errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, delivery.ErrDeliveryNotFound),
		errors.Is(err, customer.ErrCustomerNotFound),
		errors.Is(err, command.ErrDriverNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, delivery.ErrTerminalStatus),
		errors.Is(err, delivery.ErrInvalidStatus),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, command.ErrDeliveryFinished),
		errors.Is(err, command.ErrOrderNotAssignable):
		return http.StatusConflict
	case errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrNegativeUnitPrice),
		errors.Is(err, delivery.ErrUnknownStatus),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidThresholds),
		errors.Is(err, inventory.ErrUnknownAdjustment),
		errors.Is(err, inventory.ErrInvalidSaleWindow),
		errors.Is(err, inventory.ErrMissingProductName),
		errors.Is(err, inventory.ErrNegativeProductCost),
		errors.Is(err, command.ErrMissingDriver),
		errors.Is(err, command.ErrMissingCustomer),
		errors.Is(err, command.ErrUnknownProduct),
		errors.Is(err, command.ErrInactiveProduct),
		errors.Is(err, realtime.ErrEmptyAlert):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondCommandError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("command failed", zap.Error(err))
		respondJSONError(w, "internal error", status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
