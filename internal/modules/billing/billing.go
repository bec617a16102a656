// Package billing prices parking time. Everything here is pure: the same
// start, end and rate always produce the same amount.
package billing

import (
	"fmt"
	"math"
	"time"

	"parkease/internal/pkg/apperr"
)

var ErrInvalidInterval = apperr.New(apperr.ErrValidation, "INVALID_INTERVAL", "end time is before start time")

// Elapsed is end - start; an end before start is rejected.
func Elapsed(start, end time.Time) (time.Duration, error) {
	if end.Before(start) {
		return 0, ErrInvalidInterval
	}
	return end.Sub(start), nil
}

// AmountDue is ceil(hours * pricePerHour) in whole currency units. The
// product is rounded to six decimals first so float noise such as
// 1.0000000000000002 does not bill an extra unit.
func AmountDue(hours, pricePerHour float64) int64 {
	if hours <= 0 || pricePerHour <= 0 || math.IsNaN(hours) || math.IsNaN(pricePerHour) {
		return 0
	}
	product := math.Round(hours*pricePerHour*1e6) / 1e6
	return int64(math.Ceil(product))
}

func AmountFor(d time.Duration, pricePerHour float64) int64 {
	return AmountDue(d.Hours(), pricePerHour)
}

// Clock renders d as HH:MM:SS; hours may exceed two digits.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

type Quote struct {
	StartTime      time.Time `json:"start_time"`
	AsOf           time.Time `json:"as_of"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	Elapsed        string    `json:"elapsed"`
	PricePerHour   float64   `json:"price_per_hour"`
	AmountDue      int64     `json:"amount_due"`
}

// Project prices an open session as of now. It is recomputed on every read
// and never stored.
func Project(start, now time.Time, pricePerHour float64) (Quote, error) {
	d, err := Elapsed(start, now)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		StartTime:      start,
		AsOf:           now,
		ElapsedSeconds: int64(d / time.Second),
		Elapsed:        Clock(d),
		PricePerHour:   pricePerHour,
		AmountDue:      AmountFor(d, pricePerHour),
	}, nil
}
