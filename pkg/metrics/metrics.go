package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

// Point is a single stored metric sample.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

var (
	mu       sync.RWMutex
	storage  tstorage.Storage
	counters = make(map[string]int64)
)

// InitMetrics opens the time series storage under <workdir>/data/metrics.
func InitMetrics(workdir string) error {
	dataPath := filepath.Join(workdir, "data", "metrics")
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return errors.Wrap(err, "create metrics dir")
	}
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(dataPath),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(14*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	mu.Lock()
	storage = s
	mu.Unlock()
	return nil
}

func insert(name string, value float64) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return
	}
	_ = s.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
}

// SetGauge records the current value of a gauge.
func SetGauge(name string, value int64) {
	insert(name, float64(value))
}

// ObserveFloat records a fractional sample such as an amount of money.
func ObserveFloat(name string, value float64) {
	insert(name, value)
}

// Inc adds delta to an in-process counter and stores the new total.
func Inc(name string, delta int64) int64 {
	mu.Lock()
	counters[name] += delta
	v := counters[name]
	mu.Unlock()
	insert(name, float64(v))
	return v
}

// GetCounter returns the in-process value of a counter.
func GetCounter(name string) int64 {
	mu.RLock()
	defer mu.RUnlock()
	return counters[name]
}

// Query returns stored samples of name within [start, end).
func Query(name string, start, end time.Time) ([]Point, error) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return nil, nil
	}
	points, err := s.Select(name, nil, start.Unix(), end.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select metric %s", name)
	}
	result := make([]Point, 0, len(points))
	for _, p := range points {
		result = append(result, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	return result, nil
}

// Close flushes and closes the storage.
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
