// README: Pricing inputs and quote breakdown.
package pricing

import "bazaar/internal/types"

// Quote is the monetary breakdown for an order at placement time.
type Quote struct {
	Subtotal    types.Money
	DeliveryFee types.Money
	TaxAmount   types.Money
	Total       types.Money
}
