package handlers

import (
	"fmt"
	"math"

	"fabrix-backend/internal/models"
)

// Shipping methods and their flat rates in major units.
var shippingRates = map[string]float64{
	"standard": 5.00,
	"express":  15.00,
	"pickup":   0.00,
}

func shippingCost(method string) (float64, bool) {
	cost, ok := shippingRates[method]
	return cost, ok
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// unitPriceFor prices one line item from the catalog record, never from
// client input. Fabric is sold by the meter, so the unit price scales with
// the requested cut length.
func unitPriceFor(product *models.Product, fabricSel *models.FabricSelection) (float64, error) {
	switch product.Type {
	case models.ProductTypeClothing:
		return product.Price, nil
	case models.ProductTypeFabric:
		if fabricSel == nil || fabricSel.LengthMeters <= 0 {
			return 0, fmt.Errorf("lengthMeters is required for fabric items")
		}
		if product.Fabric != nil && fabricSel.LengthMeters < product.Fabric.MinLengthMeters {
			return 0, fmt.Errorf("minimum cut length is %.2f meters", product.Fabric.MinLengthMeters)
		}
		return round2(product.Price * fabricSel.LengthMeters), nil
	default:
		return 0, fmt.Errorf("unknown product type %q", product.Type)
	}
}

// computeTotals derives the full monetary breakdown server-side. Client
// submitted subtotal/tax/total are never trusted.
func computeTotals(items []models.OrderItem, shippingMethod string, taxRate float64) (models.OrderPayment, error) {
	shipping, ok := shippingCost(shippingMethod)
	if !ok {
		return models.OrderPayment{}, fmt.Errorf("unknown shipping method %q", shippingMethod)
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal * taxRate)
	total := round2(subtotal + shipping + tax)

	return models.OrderPayment{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    total,
	}, nil
}

// validateTotals enforces the breakdown invariant before anything is
// persisted: total must equal subtotal + shipping + tax to the cent.
func validateTotals(p models.OrderPayment) error {
	expected := round2(p.Subtotal + p.Shipping + p.Tax)
	if math.Abs(p.Total-expected) > 0.005 {
		return fmt.Errorf("total %.2f does not match subtotal+shipping+tax %.2f", p.Total, expected)
	}
	return nil
}
