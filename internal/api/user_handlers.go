package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"motorent/internal/entities"
	"motorent/internal/service"
)

// UserHandler serves the public booking flow: availability preview,
// lock acquisition, order creation and order lookup.
type UserHandler struct {
	Availability *service.AvailabilityService
	Locks        *service.LockService
	Orders       *service.OrderService
	Settlements  *service.SettlementService
}

func NewUserHandler(availability *service.AvailabilityService, locks *service.LockService, orders *service.OrderService, settlements *service.SettlementService) *UserHandler {
	return &UserHandler{
		Availability: availability,
		Locks:        locks,
		Orders:       orders,
		Settlements:  settlements,
	}
}

func (h *UserHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Availability.CheckAvailability(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserHandler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	var req entities.AcquireLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Locks.Acquire(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *UserHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if err := h.Locks.Release(token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Lock released"})
}

func (h *UserHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Orders.Create(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *UserHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Orders.GetByCode(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Settlements.GetByOrderCode(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
