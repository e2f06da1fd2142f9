// README: Pricing service computes delivery fee, tax, and seller commission.
package pricing

import (
	"math"

	"bazaar/internal/config"
	"bazaar/internal/types"
)

type Service struct {
	cfg config.PricingConfig
}

func NewService(cfg config.PricingConfig) *Service {
	return &Service{cfg: cfg}
}

// QuoteOrder derives the full monetary breakdown from an order subtotal.
// Delivery is free at or above the configured threshold. Tax applies to the
// subtotal only, not the delivery fee.
func (s *Service) QuoteOrder(subtotal int64) Quote {
	fee := s.cfg.DeliveryFee
	if subtotal >= s.cfg.FreeDeliveryAbove {
		fee = 0
	}
	tax := roundPercent(subtotal, s.cfg.TaxRatePercent)
	return Quote{
		Subtotal:    s.money(subtotal),
		DeliveryFee: s.money(fee),
		TaxAmount:   s.money(tax),
		Total:       s.money(subtotal + fee + tax),
	}
}

// Commission returns the platform cut for one seller's share of an order.
func (s *Service) Commission(sellerSubtotal int64) types.Money {
	return s.money(roundPercent(sellerSubtotal, s.cfg.CommissionPercent))
}

// NetPayable is the seller's share after commission.
func (s *Service) NetPayable(sellerSubtotal int64) types.Money {
	return s.money(sellerSubtotal - roundPercent(sellerSubtotal, s.cfg.CommissionPercent))
}

func (s *Service) money(amount int64) types.Money {
	return types.Money{Amount: amount, Currency: s.cfg.Currency}
}

func roundPercent(amount int64, percent float64) int64 {
	return int64(math.Round(float64(amount) * percent / 100.0))
}
