package datasource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `time,KO,PEP
2024-01-02,60.1,170.2
2024-01-03,60.4,171.0
`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fastHTTPConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      5 * time.Millisecond,
		CircuitBreakerMax: 3,
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, HTTPSourceType, TypeOf("https://example.com/prices.csv"))
	assert.Equal(t, HTTPSourceType, TypeOf("HTTP://example.com/prices.csv"))
	assert.Equal(t, FileSourceType, TypeOf("data/prices.csv"))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	source, err := NewPriceSource(path, fastHTTPConfig(), quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, source)

	set, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, set.Bars, 2)
	assert.Equal(t, []string{"KO", "PEP"}, set.Instruments)

	_, err = NewPriceSource("", fastHTTPConfig(), nil)
	assert.Error(t, err)
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, sampleCSV)
	}))
	defer server.Close()

	source, err := NewPriceSource(server.URL+"/prices.csv", fastHTTPConfig(), quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, source)

	set, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, set.Bars, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSourceNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	source, err := NewPriceSource(server.URL, fastHTTPConfig(), quietLogger())
	require.NoError(t, err)

	_, err = source.Load(context.Background())
	var srcErr SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, ErrCodeNotFound, srcErr.Code)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHTTPSourceInvalidData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "time\n")
	}))
	defer server.Close()

	source, err := NewPriceSource(server.URL, fastHTTPConfig(), quietLogger())
	require.NoError(t, err)

	_, err = source.Load(context.Background())
	var srcErr SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, ErrCodeInvalidData, srcErr.Code)
}

func TestCircuitBreakerOpens(t *testing.T) {
	client := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		CircuitBreakerMax: 2,
	}, quietLogger())
	defer client.Close()

	// Nothing listens on this address
	url := "http://127.0.0.1:1/prices.csv"
	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), url)
		require.Error(t, err)
	}
	_, err := client.Get(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}
