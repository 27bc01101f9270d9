package catalog_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/catalog"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler serves the dispatcher's rider, location and menu management.
type Handler struct {
	Service *catalog.Service
	Logger  *logger.Logger
}

func NewHandler(service *catalog.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes mounts /riders, /locations, /products and /addons.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/riders", func(r chi.Router) {
		r.Get("/", h.ListRiders)
		r.Post("/", h.CreateRider)
		r.Patch("/bulk-status", h.BulkRiderStatus)
		r.Route("/{riderId}", func(r chi.Router) {
			r.Get("/", h.GetRider)
			r.Patch("/", h.UpdateRider)
			r.Delete("/", h.DeleteRider)
			r.Patch("/status", h.UpdateRiderStatus)
		})
	})
	r.Route("/locations", func(r chi.Router) {
		r.Get("/", h.ListLocations)
		r.Post("/", h.CreateLocation)
		r.Route("/{locationId}", func(r chi.Router) {
			r.Get("/", h.GetLocation)
			r.Patch("/", h.UpdateLocation)
			r.Delete("/", h.DeleteLocation)
			r.Patch("/toggle-availability", h.ToggleLocation)
		})
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/categories", h.ProductCategories)
		r.Patch("/bulk-update", h.BulkUpdateProducts)
		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProduct)
			r.Patch("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)
		})
	})
	r.Route("/addons", func(r chi.Router) {
		r.Get("/", h.ListAddons)
		r.Post("/", h.CreateAddon)
		r.Route("/{addonId}", func(r chi.Router) {
			r.Get("/", h.GetAddon)
			r.Patch("/", h.UpdateAddon)
			r.Delete("/", h.DeleteAddon)
		})
	})
}

func (h *Handler) send(w http.ResponseWriter, status int, body utils.APIResponse) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.Logger.Error("CATALOG", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

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
		h.Logger.Error("CATALOG", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	h.send(w, status, utils.ErrorResponse(message, detail))
}

func (h *Handler) badRequest(w http.ResponseWriter, message, detail string) {
	h.Logger.Warn("CATALOG", fmt.Sprintf("%s: %s", message, detail))
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

// queryBool reads an optional true/false query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false, got %q", name, raw)
	}
	return &v, nil
}

// idAndBody reads the path id and decodes the JSON body into dst. It writes
// the 400 itself and reports whether the caller may go on.
func (h *Handler) idAndBody(w http.ResponseWriter, r *http.Request, param, what string, dst interface{}) (int64, bool) {
	id, err := pathID(r, param)
	if err != nil {
		h.badRequest(w, "Invalid "+what+" id", err.Error())
		return 0, false
	}
	if dst != nil {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			h.badRequest(w, "Invalid request body", err.Error())
			return 0, false
		}
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.badRequest(w, "Invalid request body", err.Error())
		return false
	}
	return true
}

// ---------------- RIDERS ----------------

func (h *Handler) ListRiders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.RiderFilter{Search: q.Get("search")}
	if raw := q.Get("status"); raw != "" {
		st, ok := models.ParseRiderStatus(raw)
		if !ok {
			h.badRequest(w, "Invalid status", fmt.Sprintf("unknown rider status %q", raw))
			return
		}
		f.Status = st
	}

	riders, err := h.Service.ListRiders(r.Context(), f)
	if err != nil {
		h.sendError(w, r, "Failed to list riders", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d riders", len(riders)), riders))
}

func (h *Handler) GetRider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "riderId", "rider", nil)
	if !ok {
		return
	}
	rider, err := h.Service.GetRider(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Failed to get rider", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Rider details", rider))
}

func (h *Handler) CreateRider(w http.ResponseWriter, r *http.Request) {
	var in catalog.RiderInput
	if !h.decode(w, r, &in) {
		return
	}
	rider, err := h.Service.CreateRider(r.Context(), in)
	if err != nil {
		h.sendError(w, r, "Failed to create rider", err)
		return
	}
	h.send(w, http.StatusCreated, utils.SuccessResponse("Rider created", rider))
}

func (h *Handler) UpdateRider(w http.ResponseWriter, r *http.Request) {
	var in catalog.RiderInput
	id, ok := h.idAndBody(w, r, "riderId", "rider", &in)
	if !ok {
		return
	}
	rider, err := h.Service.UpdateRider(r.Context(), id, in)
	if err != nil {
		h.sendError(w, r, "Failed to update rider", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Rider updated", rider))
}

// DeleteRider deactivates; the row stays for order history.
func (h *Handler) DeleteRider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "riderId", "rider", nil)
	if !ok {
		return
	}
	if err := h.Service.DeactivateRider(r.Context(), id); err != nil {
		h.sendError(w, r, "Failed to delete rider", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Rider deactivated", nil))
}

type riderStatusUpdate struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateRiderStatus(w http.ResponseWriter, r *http.Request) {
	var body riderStatusUpdate
	id, ok := h.idAndBody(w, r, "riderId", "rider", &body)
	if !ok {
		return
	}
	rider, err := h.Service.SetRiderStatus(r.Context(), id, body.Status)
	if err != nil {
		h.sendError(w, r, "Failed to update rider status", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Rider status updated to "+string(rider.Status), rider))
}

type bulkRiderStatus struct {
	RiderIDs []int64 `json:"rider_ids"`
	Status   string  `json:"status"`
}

func (h *Handler) BulkRiderStatus(w http.ResponseWriter, r *http.Request) {
	var body bulkRiderStatus
	if !h.decode(w, r, &body) {
		return
	}
	n, err := h.Service.SetRiderStatuses(r.Context(), body.RiderIDs, body.Status)
	if err != nil {
		h.sendError(w, r, "Failed to update riders", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Updated %d riders", n), map[string]int{"updated": n}))
}

// ---------------- LOCATIONS ----------------

func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	available, err := queryBool(r, "available")
	if err != nil {
		h.badRequest(w, "Invalid filter", err.Error())
		return
	}
	locations, err := h.Service.ListLocations(r.Context(), catalog.LocationFilter{
		Available: available,
		Search:    r.URL.Query().Get("search"),
	})
	if err != nil {
		h.sendError(w, r, "Failed to list locations", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d locations", len(locations)), locations))
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "locationId", "location", nil)
	if !ok {
		return
	}
	loc, err := h.Service.GetLocation(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Failed to get location", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Location details", loc))
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var in catalog.LocationInput
	if !h.decode(w, r, &in) {
		return
	}
	loc, err := h.Service.CreateLocation(r.Context(), in)
	if err != nil {
		h.sendError(w, r, "Failed to create location", err)
		return
	}
	h.send(w, http.StatusCreated, utils.SuccessResponse("Location created", loc))
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var in catalog.LocationInput
	id, ok := h.idAndBody(w, r, "locationId", "location", &in)
	if !ok {
		return
	}
	loc, err := h.Service.UpdateLocation(r.Context(), id, in)
	if err != nil {
		h.sendError(w, r, "Failed to update location", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Location updated", loc))
}

func (h *Handler) ToggleLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "locationId", "location", nil)
	if !ok {
		return
	}
	loc, err := h.Service.ToggleLocation(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Failed to toggle location", err)
		return
	}
	state := "unavailable"
	if loc.Available {
		state = "available"
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Location %s is now %s", loc.Name, state), loc))
}

func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "locationId", "location", nil)
	if !ok {
		return
	}
	if err := h.Service.DeleteLocation(r.Context(), id); err != nil {
		h.sendError(w, r, "Failed to delete location", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Location deleted", nil))
}

// ---------------- PRODUCTS ----------------

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	available, err := queryBool(r, "available")
	if err != nil {
		h.badRequest(w, "Invalid filter", err.Error())
		return
	}
	q := r.URL.Query()
	products, err := h.Service.ListProducts(r.Context(), catalog.ProductFilter{
		Category:  q.Get("category"),
		Available: available,
		Search:    q.Get("search"),
	})
	if err != nil {
		h.sendError(w, r, "Failed to list products", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d products", len(products)), products))
}

func (h *Handler) ProductCategories(w http.ResponseWriter, r *http.Request) {
	h.send(w, http.StatusOK, utils.SuccessResponse("Categories", models.ProductCategories))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "productId", "product", nil)
	if !ok {
		return
	}
	p, err := h.Service.GetProductDetail(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Failed to get product", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Product details", p))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.Service.CreateProduct(r.Context(), in)
	if err != nil {
		h.sendError(w, r, "Failed to create product", err)
		return
	}
	h.send(w, http.StatusCreated, utils.SuccessResponse("Product created", p))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	id, ok := h.idAndBody(w, r, "productId", "product", &in)
	if !ok {
		return
	}
	p, err := h.Service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.sendError(w, r, "Failed to update product", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Product updated", p))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "productId", "product", nil)
	if !ok {
		return
	}
	if err := h.Service.DeleteProduct(r.Context(), id); err != nil {
		h.sendError(w, r, "Failed to delete product", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Product deleted", nil))
}

type bulkProductUpdate struct {
	ProductIDs []int64                   `json:"product_ids"`
	Updates    catalog.ProductBulkUpdate `json:"updates"`
}

// BulkUpdateProducts only accepts is_available, discount and category in
// updates; any other key is a 400.
func (h *Handler) BulkUpdateProducts(w http.ResponseWriter, r *http.Request) {
	var body bulkProductUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.badRequest(w, "Invalid request body", err.Error())
		return
	}
	n, err := h.Service.BulkUpdateProducts(r.Context(), body.ProductIDs, body.Updates)
	if err != nil {
		h.sendError(w, r, "Failed to update products", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Updated %d products", n), map[string]int{"updated": n}))
}

// ---------------- ADD-ONS ----------------

func (h *Handler) ListAddons(w http.ResponseWriter, r *http.Request) {
	available, err := queryBool(r, "available")
	if err != nil {
		h.badRequest(w, "Invalid filter", err.Error())
		return
	}
	addons, err := h.Service.ListAddons(r.Context(), catalog.AddonFilter{
		Available: available,
		Search:    r.URL.Query().Get("search"),
	})
	if err != nil {
		h.sendError(w, r, "Failed to list add-ons", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d add-ons", len(addons)), addons))
}

func (h *Handler) GetAddon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "addonId", "add-on", nil)
	if !ok {
		return
	}
	a, err := h.Service.GetAddon(r.Context(), id)
	if err != nil {
		h.sendError(w, r, "Failed to get add-on", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Add-on details", a))
}

func (h *Handler) CreateAddon(w http.ResponseWriter, r *http.Request) {
	var in catalog.AddonInput
	if !h.decode(w, r, &in) {
		return
	}
	a, err := h.Service.CreateAddon(r.Context(), in)
	if err != nil {
		h.sendError(w, r, "Failed to create add-on", err)
		return
	}
	h.send(w, http.StatusCreated, utils.SuccessResponse("Add-on created", a))
}

func (h *Handler) UpdateAddon(w http.ResponseWriter, r *http.Request) {
	var in catalog.AddonInput
	id, ok := h.idAndBody(w, r, "addonId", "add-on", &in)
	if !ok {
		return
	}
	a, err := h.Service.UpdateAddon(r.Context(), id, in)
	if err != nil {
		h.sendError(w, r, "Failed to update add-on", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Add-on updated", a))
}

func (h *Handler) DeleteAddon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idAndBody(w, r, "addonId", "add-on", nil)
	if !ok {
		return
	}
	if err := h.Service.DeleteAddon(r.Context(), id); err != nil {
		h.sendError(w, r, "Failed to delete add-on", err)
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Add-on deleted", nil))
}
