// Package datasource loads point-in-time price bars from CSV files.
//
// Two layouts are accepted. The wide layout has a time column followed by one
// column per instrument:
//
//	time,XOM,CVX
//	2024-01-02,101.20,150.31
//
// The long layout has exactly the columns time, instrument and price, one row
// per observation. Empty cells mean the instrument has no price for that bar.
package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pairs-trader/internal/models"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// PriceSet is the loaded universe
type PriceSet struct {
	Bars        []models.Bar
	Instruments []string
}

// Filter restricts bars to [start, end]; a zero bound is open
func (p *PriceSet) Filter(start, end time.Time) *PriceSet {
	out := &PriceSet{Instruments: p.Instruments}
	for _, bar := range p.Bars {
		if !start.IsZero() && bar.Time.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Time.After(end) {
			continue
		}
		out.Bars = append(out.Bars, bar)
	}
	return out
}

// CSVLoader reads price files
type CSVLoader struct {
	logger *logrus.Logger
}

// NewCSVLoader creates a loader
func NewCSVLoader(logger *logrus.Logger) *CSVLoader {
	if logger == nil {
		logger = logrus.New()
	}
	return &CSVLoader{logger: logger}
}

// LoadFile opens and parses a CSV price file
func (l *CSVLoader) LoadFile(path string) (*PriceSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	set, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"path":        path,
		"bars":        len(set.Bars),
		"instruments": len(set.Instruments),
	}).Info("Loaded price file")
	return set, nil
}

// Load parses CSV price data. Bars are returned sorted by time; a timestamp
// that appears twice is an error.
func (l *CSVLoader) Load(r io.Reader) (*PriceSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty price file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a time column and at least one instrument")
	}

	if isLongLayout(header) {
		return l.loadLong(reader)
	}
	return l.loadWide(reader, header)
}

func isLongLayout(header []string) bool {
	return len(header) == 3 &&
		strings.EqualFold(header[0], "time") &&
		strings.EqualFold(header[1], "instrument") &&
		strings.EqualFold(header[2], "price")
}

func (l *CSVLoader) loadWide(reader *csv.Reader, header []string) (*PriceSet, error) {
	instruments := header[1:]
	seen := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		if inst == "" || seen[inst] {
			return nil, fmt.Errorf("invalid or duplicate instrument column %q", inst)
		}
		seen[inst] = true
	}

	var bars []models.Bar
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		at, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar := models.Bar{Time: at, Prices: make(map[string]float64, len(instruments))}
		for i, inst := range instruments {
			price, ok, err := parsePrice(record[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, inst, err)
			}
			if ok {
				bar.Prices[inst] = price
			}
		}
		bars = append(bars, bar)
	}

	return finish(bars, append([]string{}, instruments...))
}

func (l *CSVLoader) loadLong(reader *csv.Reader) (*PriceSet, error) {
	byTime := make(map[time.Time]map[string]float64)
	instruments := make(map[string]bool)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		at, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inst := strings.TrimSpace(record[1])
		if inst == "" {
			return nil, fmt.Errorf("line %d: empty instrument", line)
		}
		price, ok, err := parsePrice(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		instruments[inst] = true

		prices, exists := byTime[at]
		if !exists {
			prices = make(map[string]float64)
			byTime[at] = prices
		}
		if _, dup := prices[inst]; dup {
			return nil, fmt.Errorf("line %d: duplicate observation for %s", line, inst)
		}
		if ok {
			prices[inst] = price
		}
	}

	bars := make([]models.Bar, 0, len(byTime))
	for at, prices := range byTime {
		bars = append(bars, models.Bar{Time: at, Prices: prices})
	}
	names := make([]string, 0, len(instruments))
	for inst := range instruments {
		names = append(names, inst)
	}
	sort.Strings(names)
	return finish(bars, names)
}

func finish(bars []models.Bar, instruments []string) (*PriceSet, error) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if err := models.ValidateBars(bars); err != nil {
		return nil, models.WrapError(models.ErrMisaligned, err)
	}
	return &PriceSet{Bars: bars, Instruments: instruments}, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// parsePrice parses through decimal so that the float is the nearest value to
// the quoted price. An empty cell reports ok=false.
func parsePrice(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "null") {
		return 0, false, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if !d.IsPositive() {
		return 0, false, fmt.Errorf("non-positive price %s", d.String())
	}
	return d.InexactFloat64(), true, nil
}
