// Package pricing derives the fee breakdown and pasabuyer earnings estimate
// from an item price. All values are whole pesos.
package pricing

import "github.com/shopspring/decimal"

var (
	earningsRate    = decimal.RequireFromString("0.07")
	serviceFeeRate  = decimal.RequireFromString("0.05")
	platformFeeRate = decimal.RequireFromString("0.02")

	minEarnings    = decimal.NewFromInt(50)
	minServiceFee  = decimal.NewFromInt(50)
	minPlatformFee = decimal.NewFromInt(25)
)

// Quote is the fee breakdown shown before a request is posted.
type Quote struct {
	ItemPrice   decimal.Decimal `json:"item_price"`
	ServiceFee  decimal.Decimal `json:"service_fee"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	Total       decimal.Decimal `json:"total"`
	Earnings    decimal.Decimal `json:"estimated_earnings"`
}

// EstimateEarnings returns max(50, round(price * 0.07)).
func EstimateEarnings(price decimal.Decimal) decimal.Decimal {
	return floorAt(price.Mul(earningsRate).Round(0), minEarnings)
}

// ServiceFee returns max(50, round(price * 0.05)).
func ServiceFee(price decimal.Decimal) decimal.Decimal {
	return floorAt(price.Mul(serviceFeeRate).Round(0), minServiceFee)
}

// PlatformFee returns max(25, round(price * 0.02)).
func PlatformFee(price decimal.Decimal) decimal.Decimal {
	return floorAt(price.Mul(platformFeeRate).Round(0), minPlatformFee)
}

// QuoteFor computes the full breakdown. Total is the amount stored as the
// request price; earnings are estimated on that total.
func QuoteFor(itemPrice decimal.Decimal) Quote {
	service := ServiceFee(itemPrice)
	platform := PlatformFee(itemPrice)
	fees := service.Add(platform)
	total := itemPrice.Add(fees)
	return Quote{
		ItemPrice:   itemPrice,
		ServiceFee:  service,
		PlatformFee: platform,
		TotalFees:   fees,
		Total:       total,
		Earnings:    EstimateEarnings(total),
	}
}

func floorAt(value, min decimal.Decimal) decimal.Decimal {
	if value.LessThan(min) {
		return min
	}
	return value
}
