package types

import "github.com/shopspring/decimal"

// MinorUnitFactor is the number of minor units per major currency unit. The
// gateway bills two-decimal currencies and amounts cross every layer as minor
// units; conversion happens only at the display boundary.
const MinorUnitFactor = 100

// DisplayAmount converts an amount in minor units to major units.
func DisplayAmount(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(MinorUnitFactor))
}
