package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentai-booking-backend/internal/domain"
)

const DateLayout = "2006-01-02"

var (
	// ServiceFeeRate is the marketplace fee applied to the rental subtotal.
	ServiceFeeRate = decimal.RequireFromString("0.05")
	// InsuranceFee is a flat per-rental charge.
	InsuranceFee = decimal.RequireFromString("15.00")
)

// Quote is the full price breakdown for one rental window.
type Quote struct {
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Days        int             `json:"days"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ServiceFee  decimal.Decimal `json:"service_fee"`
	Insurance   decimal.Decimal `json:"insurance"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

// ParseDate converts a yyyy-mm-dd (or RFC3339) string into a calendar date at UTC midnight.
// RFC3339 values keep the calendar day of their own offset.
func ParseDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseRange parses both ends and rejects inverted ranges.
func ParseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, &domain.InvalidRangeError{Start: startStr, End: endStr, Reason: "start date must be yyyy-mm-dd"}
	}
	end, err := ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, &domain.InvalidRangeError{Start: startStr, End: endStr, Reason: "end date must be yyyy-mm-dd"}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &domain.InvalidRangeError{Start: startStr, End: endStr, Reason: "end date is before start date"}
	}
	return start, end, nil
}

// RentalDays counts calendar days with both ends included; a same-day rental is one day.
// Works on Unix seconds; a time.Duration cannot span more than ~292 years.
func RentalDays(start, end time.Time) int {
	diff := end.Unix() - start.Unix()
	days := diff / secondsPerDay
	if diff%secondsPerDay > 0 {
		days++
	}
	return int(days) + 1
}

const secondsPerDay = 24 * 60 * 60

// ComputeQuote prices a rental from a daily rate and a date range given as strings.
func ComputeQuote(pricePerDay decimal.Decimal, startDate, endDate string) (Quote, error) {
	start, end, err := ParseRange(startDate, endDate)
	if err != nil {
		return Quote{}, err
	}
	return QuoteForDates(pricePerDay, start, end)
}

// QuoteForDates prices an already parsed range.
func QuoteForDates(pricePerDay decimal.Decimal, start, end time.Time) (Quote, error) {
	if end.Before(start) {
		return Quote{}, &domain.InvalidRangeError{
			Start:  start.Format(DateLayout),
			End:    end.Format(DateLayout),
			Reason: "end date is before start date",
		}
	}
	if !pricePerDay.IsPositive() {
		return Quote{}, domain.ErrInvalidRate
	}

	days := RentalDays(start, end)
	subtotal := pricePerDay.Mul(decimal.NewFromInt(int64(days)))
	fee := subtotal.Mul(ServiceFeeRate).Round(2)

	return Quote{
		StartDate:   start,
		EndDate:     end,
		Days:        days,
		PricePerDay: pricePerDay,
		Subtotal:    subtotal,
		ServiceFee:  fee,
		Insurance:   InsuranceFee,
		GrandTotal:  subtotal.Add(fee).Add(InsuranceFee),
	}, nil
}
