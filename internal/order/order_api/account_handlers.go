package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sooicy-orders/internal/account"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/utils"
)

type accountResult struct {
	User      *models.SooicyUser `json:"user"`
	IsNewUser bool               `json:"is_new_user"`
}

// CreateOrGetUser registers a customer by email or refreshes the contact
// details of an existing one.
func (h *Handler) CreateOrGetUser(w http.ResponseWriter, r *http.Request) {
	var p account.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.badRequest(w, "Invalid request body", err.Error())
		return
	}

	user, created, err := h.Accounts.CreateOrGet(r.Context(), p)
	if err != nil {
		h.sendError(w, r, "Failed to create or get user", err)
		return
	}

	msg := fmt.Sprintf("Welcome back, %s!", user.Name)
	if created {
		msg = "Welcome to the Sooicy family!"
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(msg, accountResult{User: user, IsNewUser: created}))
}

func (h *Handler) UserOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		h.badRequest(w, "Invalid user id", err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.badRequest(w, "Invalid filter", err.Error())
		return
	}

	orders, err := h.Orders.ListCustomerOrders(r.Context(), id, filter)
	if err != nil {
		h.sendError(w, r, "Failed to list user orders", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d orders", len(orders)), orders))
}
