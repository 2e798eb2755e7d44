package models

import (
	"fmt"
	"strings"
	"time"
)

// DealStage is a pipeline column. Won and Lost close the deal.
type DealStage string

const (
	DealStageLead        DealStage = "Lead"
	DealStageContact     DealStage = "Contact"
	DealStageProposal    DealStage = "Proposal"
	DealStageNegotiation DealStage = "Negotiation"
	DealStageWon         DealStage = "Won"
	DealStageLost        DealStage = "Lost"
)

// Deal.Value is stored in minor currency units (centavos).
type Deal struct {
	ID                 int64     `json:"id"`
	LeadID             *int64    `json:"lead_id,omitempty"`
	Title              string    `json:"title"`
	Company            string    `json:"company"`
	Owner              string    `json:"owner"`
	Stage              DealStage `json:"stage"`
	Value              int64     `json:"value"`
	ProductInterest    string    `json:"product_interest"`
	AdditionalProducts []string  `json:"additional_products"`
	Priority           string    `json:"priority,omitempty"`
	Version            int       `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Products returns the primary product followed by the additional ones.
func (d Deal) Products() []string {
	out := make([]string, 0, 1+len(d.AdditionalProducts))
	if d.ProductInterest != "" {
		out = append(out, d.ProductInterest)
	}
	return append(out, d.AdditionalProducts...)
}

type Product struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// FormatBRL renders centavos as "R$ 1.234,56".
func FormatBRL(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	s := fmt.Sprintf("R$ %s,%02d", b.String(), cents%100)
	if neg {
		s = "-" + s
	}
	return s
}
