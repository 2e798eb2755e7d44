package workflow

import (
	"errors"
	"reflect"
	"testing"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

var catalogue = map[string]models.Product{
	"Diagnóstico": {Title: "Diagnóstico", Price: 500000},
	"Assessoria":  {Title: "Assessoria", Price: 300000},
	"Club":        {Title: "Club", Price: 50000},
}

func TestAddRemoveRoundTrip(t *testing.T) {
	d := models.Deal{ProductInterest: "Diagnóstico", Value: 500000}
	d2 := AddProduct(d, catalogue["Assessoria"])
	if d2.Value != 800000 || !reflect.DeepEqual(d2.Products(), []string{"Diagnóstico", "Assessoria"}) {
		t.Fatalf("after add: %+v", d2)
	}
	if again := AddProduct(d2, catalogue["Assessoria"]); again.Value != 800000 {
		t.Fatalf("duplicate add changed value: %d", again.Value)
	}
	d3 := RemoveProduct(d2, catalogue["Assessoria"])
	if d3.Value != d.Value || !reflect.DeepEqual(d3.Products(), d.Products()) {
		t.Fatalf("round trip mismatch: %+v", d3)
	}
}

func TestRemoveProductFloorsAtZero(t *testing.T) {
	d := models.Deal{ProductInterest: "Diagnóstico", AdditionalProducts: []string{"Club"}, Value: 100}
	d = RemoveProduct(d, catalogue["Diagnóstico"])
	if d.Value != 0 || d.ProductInterest != "Club" {
		t.Fatalf("unexpected deal: %+v", d)
	}
}

func TestSetProducts(t *testing.T) {
	d := models.Deal{ProductInterest: "Diagnóstico", Value: 500000}
	d, err := SetProducts(d, []string{"Club", "Assessoria"}, catalogue)
	if err != nil {
		t.Fatalf("SetProducts: %v", err)
	}
	if d.Value != 350000 || d.ProductInterest != "Club" || !reflect.DeepEqual(d.AdditionalProducts, []string{"Assessoria"}) {
		t.Fatalf("unexpected deal: %+v", d)
	}

	if _, err := SetProducts(d, nil, catalogue); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty list must be rejected, got %v", err)
	}
	if _, err := SetProducts(d, []string{"Unknown"}, catalogue); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown product must be rejected, got %v", err)
	}
}

func TestSetProductsDropsDeletedProductKeepingValue(t *testing.T) {
	d := models.Deal{ProductInterest: "Legado", AdditionalProducts: []string{"Club"}, Value: 250000}
	d, err := SetProducts(d, []string{"Club", "Assessoria"}, catalogue)
	if err != nil {
		t.Fatalf("SetProducts: %v", err)
	}
	// Legado's price is unknown: only Assessoria is added
	if d.Value != 550000 {
		t.Fatalf("value = %d, want 550000", d.Value)
	}
	if !reflect.DeepEqual(d.Products(), []string{"Club", "Assessoria"}) {
		t.Fatalf("products = %v", d.Products())
	}
}
