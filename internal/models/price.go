package models

import (
	"fmt"
	"time"
)

// PricePoint is one instrument observation
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is an ordered sequence of price points for one instrument
type PriceSeries []PricePoint

// Values returns the price column
func (s PriceSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Price
	}
	return values
}

// Validate checks that timestamps are strictly increasing
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return fmt.Errorf("timestamps not strictly increasing at index %d (%s <= %s)",
				i, s[i].Time.Format(time.RFC3339), s[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Bar is a cross-sectional snapshot of all instrument prices at one timestamp.
// An instrument absent from Prices has no observation for the bar.
type Bar struct {
	Time   time.Time          `json:"time"`
	Prices map[string]float64 `json:"prices"`
}

// Price returns the price of the instrument, or ErrMissingPrice
func (b Bar) Price(instrument string) (float64, error) {
	p, ok := b.Prices[instrument]
	if !ok || p <= 0 {
		return 0, WrapError(ErrMissingPrice, fmt.Errorf("%s at %s", instrument, b.Time.Format(time.RFC3339)))
	}
	return p, nil
}

// ValidateBars checks bar ordering
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d: timestamps not strictly increasing", i)
		}
	}
	return nil
}

// SeriesFromBars extracts one instrument series, dropping bars where it is absent
func SeriesFromBars(bars []Bar, instrument string) PriceSeries {
	series := make(PriceSeries, 0, len(bars))
	for _, bar := range bars {
		if p, ok := bar.Prices[instrument]; ok && p > 0 {
			series = append(series, PricePoint{Time: bar.Time, Price: p})
		}
	}
	return series
}

// Align keeps only the timestamps present in both series
func Align(a, b PriceSeries) (PriceSeries, PriceSeries) {
	outA := make(PriceSeries, 0, len(a))
	outB := make(PriceSeries, 0, len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Time.Equal(b[j].Time):
			outA = append(outA, a[i])
			outB = append(outB, b[j])
			i++
			j++
		case a[i].Time.Before(b[j].Time):
			i++
		default:
			j++
		}
	}
	return outA, outB
}
