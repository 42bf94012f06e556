package metrics

import (
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage

	// Registry holds the auction prometheus collectors
	Registry = prometheus.NewRegistry()

	BidsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auction",
		Name:      "bids_total",
		Help:      "Total number of accepted bids.",
	})

	ItemsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auction",
		Name:      "items_created_total",
		Help:      "Total number of listed items.",
	})

	CommentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auction",
		Name:      "comments_total",
		Help:      "Total number of comments.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auction",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})
)

func init() {
	Registry.MustRegister(BidsTotal, ItemsCreatedTotal, CommentsTotal, HTTPRequests)
}

// InitMetrics opens the local time-series storage under <workdir>/data/metrics
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		return nil
	}
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = st
	return nil
}

// SetGauge records a point for name at the current time. It is a no-op until InitMetrics succeeds.
func SetGauge(name string, value int64) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
	}})
}

// Points returns the values of name recorded within the last d
func Points(name string, d time.Duration) ([]*tstorage.DataPoint, error) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return nil, nil
	}
	now := time.Now().Unix()
	points, err := storage.Select(name, nil, now-int64(d.Seconds()), now+1)
	if err == tstorage.ErrNoDataPoints {
		return nil, nil
	}
	return points, err
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
