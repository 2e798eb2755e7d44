package workflow

import (
	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

// AddProduct appends p to the deal's product list and adds its price to the
// value. Adding a product already on the deal changes nothing.
func AddProduct(d models.Deal, p models.Product) models.Deal {
	for _, title := range d.Products() {
		if title == p.Title {
			return d
		}
	}
	if d.ProductInterest == "" {
		d.ProductInterest = p.Title
	} else {
		d.AdditionalProducts = append(append([]string(nil), d.AdditionalProducts...), p.Title)
	}
	d.Value += p.Price
	return d
}

// RemoveProduct drops p and subtracts its price, flooring the value at zero.
// The first remaining product becomes the primary one.
func RemoveProduct(d models.Deal, p models.Product) models.Deal {
	products := d.Products()
	kept := make([]string, 0, len(products))
	found := false
	for _, title := range products {
		if title == p.Title && !found {
			found = true
			continue
		}
		kept = append(kept, title)
	}
	if !found {
		return d
	}
	d.Value -= p.Price
	if d.Value < 0 {
		d.Value = 0
	}
	d.ProductInterest, d.AdditionalProducts = splitProducts(kept)
	return d
}

func splitProducts(list []string) (string, []string) {
	if len(list) == 0 {
		return "", []string{}
	}
	return list[0], append([]string{}, list[1:]...)
}

// SetProducts reconciles the deal with the wanted list using the catalogue
// prices, so value stays the running sum of added minus removed products.
// An empty list is rejected. Products no longer in the catalogue are dropped
// without touching the value.
func SetProducts(d models.Deal, wanted []string, catalogue map[string]models.Product) (models.Deal, error) {
	if len(wanted) == 0 {
		return d, apperr.Validation("deal needs at least one product")
	}
	want := make(map[string]bool, len(wanted))
	for _, title := range wanted {
		if _, ok := catalogue[title]; !ok {
			return d, apperr.Validation("unknown product %q", title)
		}
		want[title] = true
	}
	for _, title := range d.Products() {
		if want[title] {
			continue
		}
		p, ok := catalogue[title]
		if !ok {
			// deleted from the catalogue: its price is unknown, so the value
			// is left for a manual override
			p = models.Product{Title: title}
		}
		d = RemoveProduct(d, p)
	}
	for _, title := range wanted {
		d = AddProduct(d, catalogue[title])
	}
	// order follows the caller; the first entry is the primary product
	d.ProductInterest, d.AdditionalProducts = splitProducts(dedupe(wanted))
	return d, nil
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
