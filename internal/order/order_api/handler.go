package order_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sooicy-orders/internal/account"
	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/order"
	"sooicy-orders/internal/utils"

	"github.com/go-chi/chi/v5"
)

// OrderOperations is the order service as seen by the HTTP layer.
type OrderOperations interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.OrderResult, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	RecentOrders(ctx context.Context, limit int) ([]*models.Order, error)
	ListCustomerOrders(ctx context.Context, accountID int64, filter models.OrderFilter) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status, note, actor string) (*models.Order, error)
	AssignRider(ctx context.Context, orderID, riderID int64, actor string) (*models.Order, error)
}

type AccountService interface {
	CreateOrGet(ctx context.Context, p account.Profile) (*models.SooicyUser, bool, error)
}

type TrackingHistory interface {
	List(ctx context.Context, orderID int64) ([]*models.OrderTracking, error)
}

type TrackingStream interface {
	Subscribe(ctx context.Context, orderID int64) <-chan models.OrderTracking
}

type QRCodes interface {
	TrackingURL(orderID int64) string
	PNG(orderID int64) ([]byte, error)
}

type Handler struct {
	Orders   OrderOperations
	Accounts AccountService
	History  TrackingHistory
	Stream   TrackingStream
	QR       QRCodes
	Logger   *logger.Logger
}

func NewHandler(orders OrderOperations, accounts AccountService, history TrackingHistory, stream TrackingStream, qr QRCodes, log *logger.Logger) *Handler {
	return &Handler{
		Orders:   orders,
		Accounts: accounts,
		History:  history,
		Stream:   stream,
		QR:       qr,
		Logger:   log,
	}
}

// RegisterRoutes mounts the order, customer and utility routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/recent", h.RecentOrders)
		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Patch("/status", h.UpdateOrderStatus)
			r.Patch("/assign-rider", h.AssignRider)
			r.Get("/tracking", h.GetTracking)
			r.Get("/tracking/stream", h.StreamTracking)
			r.Get("/tracking/qr", h.TrackingQR)
		})
	})
	r.Route("/user", func(r chi.Router) {
		r.Post("/create-or-get", h.CreateOrGetUser)
		r.Get("/{userId}/orders", h.UserOrders)
	})
	r.Get("/status-choices", h.StatusChoices)
	r.Get("/categories", h.Categories)
}

func (h *Handler) send(w http.ResponseWriter, status int, body utils.APIResponse) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

// sendError maps an error kind to its HTTP status. Storage failures are
// logged with their cause and reported without it.
func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	detail := "internal server error"
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status, detail = http.StatusBadRequest, err.Error()
	case apperr.KindNotFound:
		status, detail = http.StatusNotFound, err.Error()
	case apperr.KindConflict:
		status, detail = http.StatusConflict, err.Error()
	default:
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	h.send(w, status, utils.ErrorResponse(message, detail))
}

func (h *Handler) badRequest(w http.ResponseWriter, message, detail string) {
	h.Logger.Warn("API", fmt.Sprintf("%s: %s", message, detail))
	h.send(w, http.StatusBadRequest, utils.ErrorResponse(message, detail))
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// parseFilter reads status, date_from, date_to and search. Both dates are
// inclusive calendar days.
func parseFilter(r *http.Request) (models.OrderFilter, error) {
	q := r.URL.Query()
	var f models.OrderFilter

	if raw := q.Get("status"); raw != "" {
		st, ok := models.ParseOrderStatus(raw)
		if !ok {
			return f, fmt.Errorf("invalid status %q", raw)
		}
		f.Status = st
	}
	if raw := q.Get("date_from"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			return f, fmt.Errorf("date_from must be YYYY-MM-DD, got %q", raw)
		}
		f.DateFrom = d
	}
	if raw := q.Get("date_to"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			return f, fmt.Errorf("date_to must be YYYY-MM-DD, got %q", raw)
		}
		f.DateTo = d.AddDate(0, 0, 1)
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid request body", err.Error())
		return
	}
	h.Logger.Debug("API", fmt.Sprintf("CreateOrder: %d items for %s", len(req.Items), req.CustomerPhone))

	result, err := h.Orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.sendError(w, r, "Failed to create order", err)
		return
	}
	h.send(w, http.StatusCreated, utils.SuccessResponse(result.Message, result))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.badRequest(w, "Invalid filter", err.Error())
		return
	}
	orders, err := h.Orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.sendError(w, r, "Failed to list orders", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d orders", len(orders)), orders))
}

func (h *Handler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.badRequest(w, "Invalid limit", fmt.Sprintf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}
	orders, err := h.Orders.RecentOrders(r.Context(), limit)
	if err != nil {
		h.sendError(w, r, "Failed to list recent orders", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Recent orders", orders))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.badRequest(w, "Invalid order id", err.Error())
		return
	}
	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Order not found", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order", o))
}

type statusUpdate struct {
	Status    string `json:"status"`
	Notes     string `json:"notes"`
	UpdatedBy string `json:"updated_by"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.badRequest(w, "Invalid order id", err.Error())
		return
	}
	var body statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.badRequest(w, "Invalid request body", err.Error())
		return
	}

	o, err := h.Orders.UpdateOrderStatus(r.Context(), id, body.Status, body.Notes, body.UpdatedBy)
	if err != nil {
		h.sendError(w, r, "Failed to update order status", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order status updated", o))
}

type riderAssignment struct {
	RiderID   int64  `json:"rider_id"`
	UpdatedBy string `json:"updated_by"`
}

func (h *Handler) AssignRider(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.badRequest(w, "Invalid order id", err.Error())
		return
	}
	var body riderAssignment
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.badRequest(w, "Invalid request body", err.Error())
		return
	}

	o, err := h.Orders.AssignRider(r.Context(), id, body.RiderID, body.UpdatedBy)
	if err != nil {
		h.sendError(w, r, "Failed to assign rider", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Rider assigned", o))
}

func (h *Handler) GetTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.badRequest(w, "Invalid order id", err.Error())
		return
	}
	entries, err := h.History.List(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Failed to load tracking", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Order tracking", entries))
}

// TrackingQR serves a PNG that encodes the order's public tracking URL.
func (h *Handler) TrackingQR(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.badRequest(w, "Invalid order id", err.Error())
		return
	}
	if _, err := h.Orders.GetOrder(r.Context(), id); err != nil {
		h.sendError(w, r, "Order not found", err)
		return
	}
	png, err := h.QR.PNG(id)
	if err != nil {
		h.sendError(w, r, "Failed to generate QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Tracking-URL", h.QR.TrackingURL(id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Failed to write QR for order #%d: %v", id, err))
	}
}

func (h *Handler) StatusChoices(w http.ResponseWriter, r *http.Request) {
	choices, ok := models.ChoicesFor(r.URL.Query().Get("model"))
	if !ok {
		h.badRequest(w, "Invalid model", "Available: rider, order, vehicle, payment")
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Choices", choices))
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	h.send(w, http.StatusOK, utils.SuccessResponse("Categories", models.ProductCategories))
}
