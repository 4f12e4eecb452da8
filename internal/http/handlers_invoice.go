package http

import (
	"net/http"

	"fleetbudget/internal/core"
	"fleetbudget/internal/services"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handlePreviewInvoice(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := toLineItems(req.Items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	inv, err := s.svc.Invoices.Preview(items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.OrderDate)
	if err != nil {
		s.writeError(w, r, core.ErrMissingOrderDate)
		return
	}
	items, err := toLineItems(req.Items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.svc.Invoices.CreateInvoice(r.Context(), services.InvoiceDraft{
		VehicleID:    core.VehicleID(req.VehicleID),
		OrderDate:    date,
		Supplier:     req.Supplier,
		Description:  req.Description,
		CurrencyCode: req.CurrencyCode,
		Items:        items,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/invoices/"+order.ID)
	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	order, err := s.svc.Invoices.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	period, err := s.periodParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.svc.Invoices.ListOrders(r.Context(), core.VehicleID(r.URL.Query().Get("vehicle_id")), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}
