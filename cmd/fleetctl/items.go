package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"fleetbudget/internal/core"
)

type itemInput struct {
	Name         string      `json:"name"`
	SKU          string      `json:"sku"`
	Quantity     int64       `json:"quantity"`
	UnitPriceNet json.Number `json:"unit_price_net"`
	VATRate      json.Number `json:"vat_rate"`
}

// readItemsFile reads line items from path, or stdin when path is "-".
func readItemsFile(path string, stdin io.Reader) ([]core.InvoiceLineItem, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return readItems(r)
}

// readItems accepts either a bare JSON array of items or {"items": [...]}.
func readItems(r io.Reader) ([]core.InvoiceLineItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var in []itemInput
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Items []itemInput `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse items: %w", err)
		}
		in = wrapped.Items
	} else if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	items := make([]core.InvoiceLineItem, 0, len(in))
	for i, it := range in {
		price, err := core.ParseAmount(it.UnitPriceNet.String())
		if err != nil {
			return nil, &core.ValidationError{Code: core.CodeInvalidItem, Index: i, Field: "unit_price_net", Reason: "must be a non-negative decimal"}
		}
		vat, err := core.ParseAmount(it.VATRate.String())
		if err != nil {
			return nil, &core.ValidationError{Code: core.CodeInvalidItem, Index: i, Field: "vat_rate", Reason: "must be a non-negative decimal"}
		}
		items = append(items, core.InvoiceLineItem{
			Name:         it.Name,
			SKU:          it.SKU,
			Quantity:     it.Quantity,
			UnitPriceNet: price,
			VATRate:      vat,
		})
	}
	return items, nil
}
