package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBOMLine_Validation(t *testing.T) {
	line, err := NewBOMLine("CHILD", decimal.NewFromInt(2), decimal.Zero, "EA")
	if err != nil {
		t.Fatalf("Expected valid BOM line creation to succeed: %v", err)
	}
	if !line.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected quantity per 2, got %s", line.Quantity)
	}

	testCases := []struct {
		name        string
		component   ItemID
		qty         decimal.Decimal
		scrap       decimal.Decimal
		expectError string
	}{
		{"empty component", "", decimal.NewFromInt(1), decimal.Zero, "component id cannot be empty"},
		{"zero quantity", "CHILD", decimal.Zero, decimal.Zero, "quantity per must be positive, got 0"},
		{"negative quantity", "CHILD", decimal.NewFromInt(-1), decimal.Zero, "quantity per must be positive, got -1"},
		{"negative scrap", "CHILD", decimal.NewFromInt(1), decimal.NewFromInt(-5), "scrap percent cannot be negative, got -5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMLine(tc.component, tc.qty, tc.scrap, "EA")
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBOMLine_EffectiveQuantity(t *testing.T) {
	line := BOMLine{ComponentID: "C", Quantity: decimal.NewFromInt(4), ScrapPercent: decimal.NewFromInt(25)}
	if got := line.EffectiveQuantity(); !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected effective quantity 5, got %s", got)
	}

	line.ScrapPercent = decimal.Zero
	if got := line.EffectiveQuantity(); !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected effective quantity 4 without scrap, got %s", got)
	}
}

func TestBOM_IsUsable(t *testing.T) {
	bom, err := NewBOM("B1", "PARENT", nil)
	if err != nil {
		t.Fatalf("Expected valid BOM: %v", err)
	}
	if !bom.IsUsable() {
		t.Error("Expected new BOM to be usable")
	}

	bom.Deleted = true
	if bom.IsUsable() {
		t.Error("Expected deleted BOM to be unusable")
	}

	bom.Deleted = false
	bom.Status = BOMDraft
	if bom.IsUsable() {
		t.Error("Expected draft BOM to be unusable")
	}

	var missing *BOM
	if missing.IsUsable() {
		t.Error("Expected nil BOM to be unusable")
	}
}

func TestNewBOM_RejectsSelfReference(t *testing.T) {
	_, err := NewBOM("B1", "P", []BOMLine{{ComponentID: "P", Quantity: decimal.NewFromInt(1)}})
	if err == nil {
		t.Fatal("Expected error for self-referencing BOM")
	}
}
