package core

import (
	"github.com/shopspring/decimal"
)

const utilityPrecision int32 = 6 // 6 decimal places for utilities (0.000001 precision)

// AboveReservation returns true if the utility strictly exceeds the reservation utility.
// Uses decimal arithmetic with utilityPrecision to avoid floating-point errors.
// Rounding is monotone, so a utility at or below the reservation never passes.
// Utilities in (R, R+5e-7) round to R and are rejected as well: below the
// precision utilities count as equal, which also absorbs float noise such as
// 0.1+0.2 against 0.3.
func AboveReservation(utility, reservation float64) bool {
	utilityDecimal := decimal.NewFromFloat(utility).Round(utilityPrecision)
	reservationDecimal := decimal.NewFromFloat(reservation).Round(utilityPrecision)

	return utilityDecimal.GreaterThan(reservationDecimal)
}

// ConcessionFloor returns the lowest target utility the bidding curve may reach:
// the reservation utility, raised to ResAlt when the profile's reservation is lower.
func ConcessionFloor(reservation float64) float64 {
	if reservation < ResAlt {
		return ResAlt
	}
	return reservation
}

// ReservationUtility resolves the reservation utility R from an optional
// reservation bid.
func ReservationUtility(reservationBid *Bid, utility func(Bid) float64) float64 {
	if reservationBid == nil || reservationBid.IsZero() {
		return DefaultReservation
	}
	return utility(*reservationBid)
}
