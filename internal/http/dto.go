package http

import (
	"encoding/json"
	"time"

	"fleetbudget/internal/core"
)

type lineItemRequest struct {
	Name         string      `json:"name" validate:"max=200"`
	SKU          string      `json:"sku" validate:"max=64"`
	Quantity     int64       `json:"quantity"`
	UnitPriceNet json.Number `json:"unit_price_net" validate:"required"`
	VATRate      json.Number `json:"vat_rate" validate:"required"`
}

type previewRequest struct {
	Items []lineItemRequest `json:"items" validate:"dive"`
}

type createInvoiceRequest struct {
	VehicleID    string            `json:"vehicle_id" validate:"required,max=64"`
	OrderDate    string            `json:"order_date" validate:"required,datetime=2006-01-02"`
	Supplier     string            `json:"supplier" validate:"max=200"`
	Description  string            `json:"description" validate:"max=1000"`
	CurrencyCode string            `json:"currency_code" validate:"omitempty,len=3,alpha"`
	Items        []lineItemRequest `json:"items" validate:"dive"`
}

type createVehicleRequest struct {
	ID           string `json:"id" validate:"max=64"`
	Registration string `json:"registration" validate:"required,max=32"`
	Name         string `json:"name" validate:"max=200"`
	Branch       string `json:"branch" validate:"max=200"`
}

type setLimitRequest struct {
	Amount json.Number `json:"amount" validate:"required"`
}

// toLineItems converts request items. Prices that are not plain non-negative
// decimals are reported like any other invalid item.
func toLineItems(items []lineItemRequest) ([]core.InvoiceLineItem, error) {
	out := make([]core.InvoiceLineItem, 0, len(items))
	for i, it := range items {
		price, err := core.ParseAmount(it.UnitPriceNet.String())
		if err != nil {
			return nil, &core.ValidationError{Code: core.CodeInvalidItem, Index: i, Field: "unit_price_net", Reason: "must be a non-negative decimal"}
		}
		vat, err := core.ParseAmount(it.VATRate.String())
		if err != nil {
			return nil, &core.ValidationError{Code: core.CodeInvalidItem, Index: i, Field: "vat_rate", Reason: "must be a non-negative decimal"}
		}
		out = append(out, core.InvoiceLineItem{
			Name:         it.Name,
			SKU:          it.SKU,
			Quantity:     it.Quantity,
			UnitPriceNet: price,
			VATRate:      vat,
		})
	}
	return out, nil
}

type lineItemResponse struct {
	Name           string `json:"name"`
	SKU            string `json:"sku,omitempty"`
	Quantity       int64  `json:"quantity"`
	UnitPriceNet   string `json:"unit_price_net"`
	VATRate        string `json:"vat_rate"`
	UnitPriceGross string `json:"unit_price_gross"`
	TotalNet       string `json:"total_net"`
	TotalGross     string `json:"total_gross"`
}

type invoiceResponse struct {
	Items      []lineItemResponse `json:"items"`
	TotalNet   string             `json:"total_net"`
	TotalGross string             `json:"total_gross"`
}

type orderResponse struct {
	ID           string          `json:"id"`
	VehicleID    string          `json:"vehicle_id"`
	OrderDate    string          `json:"order_date"`
	Supplier     string          `json:"supplier,omitempty"`
	Description  string          `json:"description,omitempty"`
	CurrencyCode string          `json:"currency_code"`
	Invoice      invoiceResponse `json:"invoice"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newInvoiceResponse(inv core.Invoice) invoiceResponse {
	resp := invoiceResponse{
		Items:      make([]lineItemResponse, 0, len(inv.Items)),
		TotalNet:   inv.Totals.TotalNet.StringFixed(core.CentPlaces),
		TotalGross: inv.Totals.TotalGross.StringFixed(core.CentPlaces),
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			Name:           it.Name,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPriceNet:   it.UnitPriceNet.String(),
			VATRate:        it.VATRate.String(),
			UnitPriceGross: it.UnitPriceGross.StringFixed(core.CentPlaces),
			TotalNet:       it.TotalNet.StringFixed(core.CentPlaces),
			TotalGross:     it.TotalGross.StringFixed(core.CentPlaces),
		})
	}
	return resp
}

func newOrderResponse(o core.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		VehicleID:    string(o.VehicleID),
		OrderDate:    o.OrderDate.String(),
		Supplier:     o.Supplier,
		Description:  o.Description,
		CurrencyCode: o.CurrencyCode,
		Invoice:      newInvoiceResponse(o.Invoice),
		CreatedAt:    o.CreatedAt,
	}
}

type vehicleResponse struct {
	ID           string    `json:"id"`
	Registration string    `json:"registration"`
	Name         string    `json:"name,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func newVehicleResponse(v core.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:           string(v.ID),
		Registration: v.Registration,
		Name:         v.Name,
		Branch:       v.Branch,
		CreatedAt:    v.CreatedAt,
	}
}

type limitResponse struct {
	Amount       string     `json:"amount"`
	CurrencyCode string     `json:"currency_code"`
	Configured   bool       `json:"configured"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func newLimitResponse(l core.BudgetLimit) limitResponse {
	resp := limitResponse{
		Amount:       l.Amount.StringFixed(core.CentPlaces),
		CurrencyCode: l.CurrencyCode,
		Configured:   l.Configured(),
	}
	if !l.UpdatedAt.IsZero() {
		t := l.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

type alertResponse struct {
	ID             string     `json:"id"`
	VehicleID      string     `json:"vehicle_id"`
	AlertType      string     `json:"alert_type"`
	PeriodStart    string     `json:"period_start"`
	PeriodEnd      string     `json:"period_end"`
	ThresholdValue string     `json:"threshold_value"`
	ActualValue    string     `json:"actual_value"`
	CurrencyCode   string     `json:"currency_code"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newAlertResponse(a core.BudgetAlert) alertResponse {
	return alertResponse{
		ID:             a.ID,
		VehicleID:      string(a.VehicleID),
		AlertType:      string(a.AlertType),
		PeriodStart:    a.PeriodStart.String(),
		PeriodEnd:      a.PeriodEnd.String(),
		ThresholdValue: a.ThresholdValue.String(),
		ActualValue:    a.ActualValue.String(),
		CurrencyCode:   a.CurrencyCode,
		Acknowledged:   a.Acknowledged,
		AcknowledgedAt: a.AcknowledgedAt,
		CreatedAt:      a.CreatedAt,
	}
}

func newAlertResponses(alerts []core.BudgetAlert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, newAlertResponse(a))
	}
	return out
}

type checkResponse struct {
	Period     string          `json:"period"`
	Notice     string          `json:"notice,omitempty"`
	OverBudget int             `json:"over_budget"`
	Inserted   int             `json:"inserted"`
	Alerts     []alertResponse `json:"alerts"`
}

type spendingRowResponse struct {
	VehicleID  string `json:"vehicle_id"`
	TotalSpent string `json:"total_spent"`
	OverBudget bool   `json:"over_budget"`
}

type spendingResponse struct {
	Period     string                `json:"period"`
	Limit      limitResponse         `json:"limit"`
	FleetTotal string                `json:"fleet_total"`
	OverBudget int                   `json:"over_budget"`
	Vehicles   []spendingRowResponse `json:"vehicles"`
}

func newSpendingResponse(ov core.SpendingOverview) spendingResponse {
	resp := spendingResponse{
		Period:     ov.Period.Key(),
		Limit:      newLimitResponse(ov.Limit),
		FleetTotal: ov.FleetTotal.StringFixed(core.CentPlaces),
		OverBudget: ov.OverBudget,
		Vehicles:   make([]spendingRowResponse, 0, len(ov.Vehicles)),
	}
	for _, v := range ov.Vehicles {
		resp.Vehicles = append(resp.Vehicles, spendingRowResponse{
			VehicleID:  string(v.VehicleID),
			TotalSpent: v.TotalSpent.StringFixed(core.CentPlaces),
			OverBudget: v.OverBudget,
		})
	}
	return resp
}
