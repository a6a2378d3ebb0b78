package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"motorent/internal/auth"
	"motorent/internal/entities"
	"motorent/internal/service"
)

// StaffHandler serves the operations console: order lifecycle actions
// and settlement management.
type StaffHandler struct {
	Orders       *service.OrderService
	Settlements  *service.SettlementService
	Availability *service.AvailabilityService
}

func NewStaffHandler(orders *service.OrderService, settlements *service.SettlementService, availability *service.AvailabilityService) *StaffHandler {
	return &StaffHandler{Orders: orders, Settlements: settlements, Availability: availability}
}

// VehicleConflicts lists the orders blocking a vehicle for a range, so
// staff can see what stands behind an unavailable answer.
func (h *StaffHandler) VehicleConflicts(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Availability.ConflictReport(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StaffHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	res, err := h.Orders.List(status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Handover records the customer picking up the vehicle.
func (h *StaffHandler) Handover(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Orders.Start(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Return records the vehicle coming back and responds with the fresh
// settlement.
func (h *StaffHandler) Return(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req entities.CompleteOrderRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	res, err := h.Orders.Complete(code, req.ActualReturnTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StaffHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req entities.CancelOrderRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.Orders.Cancel(code, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled"})
}

func (h *StaffHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Settlements.GetByOrderCode(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StaffHandler) AddDamageCharge(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req entities.DamageChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Settlements.AddDamageCharge(code, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StaffHandler) FinalizeSettlement(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := h.Settlements.Finalize(code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Settlement finalized"})
}

func (h *StaffHandler) MarkRefund(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req entities.MarkRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	staffID := auth.StaffIDFromContext(r.Context())
	if err := h.Settlements.MarkRefund(code, req, staffID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Refund recorded"})
}

func (h *StaffHandler) CreateAdditionalPayment(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	res, err := h.Settlements.CreateAdditionalPayment(code, req.PaymentMethod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
