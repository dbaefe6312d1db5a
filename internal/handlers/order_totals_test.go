package handlers

import (
	"testing"

	"fabrix-backend/internal/models"
)

func TestComputeTotalsBreakdown(t *testing.T) {
	items := []models.OrderItem{
		{Type: models.ProductTypeClothing, UnitPrice: 20.00, Quantity: 2},
		{Type: models.ProductTypeFabric, UnitPrice: 10.00, Quantity: 1},
	}

	payment, err := computeTotals(items, "standard", 0.088)
	if err != nil {
		t.Fatalf("computeTotals returned error: %v", err)
	}

	if payment.Subtotal != 50.00 {
		t.Errorf("subtotal = %.2f, want 50.00", payment.Subtotal)
	}
	if payment.Shipping != 5.00 {
		t.Errorf("shipping = %.2f, want 5.00", payment.Shipping)
	}
	if payment.Tax != 4.40 {
		t.Errorf("tax = %.2f, want 4.40", payment.Tax)
	}
	if payment.Total != 59.40 {
		t.Errorf("total = %.2f, want 59.40", payment.Total)
	}
	if err := validateTotals(payment); err != nil {
		t.Errorf("computed breakdown should validate: %v", err)
	}
}

func TestComputeTotalsRejectsUnknownShippingMethod(t *testing.T) {
	_, err := computeTotals(nil, "drone", 0.08)
	if err == nil {
		t.Fatal("expected error for unknown shipping method")
	}
}

func TestValidateTotalsRejectsMismatch(t *testing.T) {
	payment := models.OrderPayment{Subtotal: 50, Shipping: 5, Tax: 4.40, Total: 58.00}
	if err := validateTotals(payment); err == nil {
		t.Fatal("expected mismatched total to be rejected")
	}
}

func TestUnitPriceForFabricScalesWithLength(t *testing.T) {
	product := &models.Product{
		Type:   models.ProductTypeFabric,
		Price:  12.50,
		Fabric: &models.FabricOptions{MinLengthMeters: 0.5},
	}

	price, err := unitPriceFor(product, &models.FabricSelection{LengthMeters: 2})
	if err != nil {
		t.Fatalf("unitPriceFor returned error: %v", err)
	}
	if price != 25.00 {
		t.Errorf("price = %.2f, want 25.00", price)
	}

	if _, err := unitPriceFor(product, &models.FabricSelection{LengthMeters: 0.2}); err == nil {
		t.Error("expected minimum length violation to be rejected")
	}
	if _, err := unitPriceFor(product, nil); err == nil {
		t.Error("expected missing fabric selection to be rejected")
	}
}

func TestUnitPriceForClothingIgnoresLength(t *testing.T) {
	product := &models.Product{Type: models.ProductTypeClothing, Price: 39.90}
	price, err := unitPriceFor(product, nil)
	if err != nil {
		t.Fatalf("unitPriceFor returned error: %v", err)
	}
	if price != 39.90 {
		t.Errorf("price = %.2f, want 39.90", price)
	}
}
