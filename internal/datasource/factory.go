package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// SourceType represents the type of price source
type SourceType string

const (
	// FileSourceType reads a local CSV file
	FileSourceType SourceType = "file"
	// HTTPSourceType downloads a CSV over HTTP(S)
	HTTPSourceType SourceType = "http"
)

// TypeOf classifies a price location
func TypeOf(location string) SourceType {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return HTTPSourceType
	}
	return FileSourceType
}

// FileSource reads prices from a local CSV file
type FileSource struct {
	path   string
	loader *CSVLoader
}

// Load implements PriceSource
func (s *FileSource) Load(ctx context.Context) (*PriceSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.loader.LoadFile(s.path)
}

// Name implements PriceSource
func (s *FileSource) Name() string {
	return string(FileSourceType) + ":" + s.path
}

// NewPriceSource creates the PriceSource for a file path or URL
func NewPriceSource(location string, httpCfg HTTPClientConfig, logger *logrus.Logger) (PriceSource, error) {
	if location == "" {
		return nil, fmt.Errorf("price location is required")
	}
	loader := NewCSVLoader(logger)

	switch TypeOf(location) {
	case HTTPSourceType:
		return &HTTPSource{
			url:    location,
			client: NewRateLimitedHTTPClient(httpCfg, loader.logger),
			loader: loader,
		}, nil
	default:
		return &FileSource{path: location, loader: loader}, nil
	}
}
