// Singleton so that it's easier to use in other packages
package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relistan/go-director"
	"github.com/sirupsen/logrus"
)

// Prometheus counter/gauge names
const (
	SyncEventsTotal   = "syncservice_events_total"
	SyncReadErrors    = "syncservice_read_errors"
	SyncProcessErrors = "syncservice_process_errors"
	SyncIndexWrites   = "syncservice_index_writes"
	SyncIndexDeletes  = "syncservice_index_deletes"
	SyncQueueJobs     = "syncservice_queue_jobs"
	SyncWorkers       = "syncservice_workers"
)

// Interval-rate counter names (logged by the reporter, reset each interval)
const (
	CounterEvents     = "events-processed"
	CounterQueueJobs  = "queue-jobs-processed"
	CounterReadErrors = "read-errors"
)

var (
	ReportInterval = 10 * time.Second

	mutex    = &sync.RWMutex{}
	counters = make(map[string]float64)

	prometheusMutex    = &sync.RWMutex{}
	prometheusCounters = make(map[string]prometheus.Counter)
	prometheusGauges   = make(map[string]prometheus.Gauge)

	muted = make(map[string]struct{})

	looper director.Looper
)

// Start launches the interval stats reporter
func Start(reportIntervalSeconds int32) {
	interval := time.Duration(reportIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = ReportInterval
	}

	looper = director.NewImmediateTimedLooper(director.FOREVER, interval, make(chan error, 1))

	logrus.Debugf("launching stats reporter ('%s' interval)", interval)

	go func() {
		looper.Loop(func() error {
			mutex.Lock()
			defer mutex.Unlock()

			for counterName, counterValue := range counters {
				if _, ok := muted[counterName]; ok {
					continue
				}

				perSecond := counterValue / interval.Seconds()

				logrus.Infof("STATS [%s]: %.2f / %s (%.2f/s)", counterName, counterValue,
					interval, perSecond)

				// Reset it
				counters[counterName] = 0
			}

			return nil
		})
	}()
}

// InitPrometheusMetrics sets up prometheus counters/gauges
func InitPrometheusMetrics() {
	prometheusMutex.Lock()
	defer prometheusMutex.Unlock()

	prometheusCounters[SyncEventsTotal] = promauto.NewCounter(prometheus.CounterOpts{
		Name: SyncEventsTotal,
		Help: "Total number of CDC events fully processed and acknowledged",
	})

	prometheusCounters[SyncReadErrors] = promauto.NewCounter(prometheus.CounterOpts{
		Name: SyncReadErrors,
		Help: "Number of transport-level errors while reading from the stream",
	})

	prometheusCounters[SyncProcessErrors] = promauto.NewCounter(prometheus.CounterOpts{
		Name: SyncProcessErrors,
		Help: "Number of records left unacknowledged due to parse or handler errors",
	})

	prometheusCounters[SyncIndexWrites] = promauto.NewCounter(prometheus.CounterOpts{
		Name: SyncIndexWrites,
		Help: "Number of upserts issued against the search index",
	})

	prometheusCounters[SyncIndexDeletes] = promauto.NewCounter(prometheus.CounterOpts{
		Name: SyncIndexDeletes,
		Help: "Number of deletes issued against the search index",
	})

	prometheusCounters[SyncQueueJobs] = promauto.NewCounter(prometheus.CounterOpts{
		Name: SyncQueueJobs,
		Help: "Number of queue-mode jobs processed",
	})

	prometheusGauges[SyncWorkers] = promauto.NewGauge(prometheus.GaugeOpts{
		Name: SyncWorkers,
		Help: "Number of running sync workers",
	})
}

// RunServer exposes /metrics on the given listen address
func RunServer(listenAddress string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logrus.Debugf("starting metrics server on '%s'", listenAddress)

		if err := http.ListenAndServe(listenAddress, mux); err != nil {
			logrus.Errorf("unable to serve metrics: %s", err)
		}
	}()
}

// Incr increments an interval-rate counter
func Incr(name string, value float64) {
	mutex.Lock()
	defer mutex.Unlock()

	counters[name] += value
}

// IncrPromCounter increments a prometheus counter; unknown names are a no-op
// so callers never have to care whether metrics were initialized.
func IncrPromCounter(name string, amount int) {
	prometheusMutex.RLock()
	defer prometheusMutex.RUnlock()

	if counter, ok := prometheusCounters[name]; ok {
		counter.Add(float64(amount))
	}
}

// SetPromGauge sets a prometheus gauge value
func SetPromGauge(name string, value float64) {
	prometheusMutex.RLock()
	defer prometheusMutex.RUnlock()

	if gauge, ok := prometheusGauges[name]; ok {
		gauge.Set(value)
	}
}

// IncrPromGauge increments a prometheus gauge
func IncrPromGauge(name string) {
	prometheusMutex.RLock()
	defer prometheusMutex.RUnlock()

	if gauge, ok := prometheusGauges[name]; ok {
		gauge.Inc()
	}
}

// DecrPromGauge decrements a prometheus gauge
func DecrPromGauge(name string) {
	prometheusMutex.RLock()
	defer prometheusMutex.RUnlock()

	if gauge, ok := prometheusGauges[name]; ok {
		gauge.Dec()
	}
}

// Mute silences interval reporting for a counter (used while a backend is in
// an error state so the log isn't flooded with zero rates)
func Mute(name string) {
	mutex.Lock()
	defer mutex.Unlock()

	muted[name] = struct{}{}
}

// Unmute re-enables interval reporting for a counter
func Unmute(name string) {
	mutex.Lock()
	defer mutex.Unlock()

	delete(muted, name)
}

// Stop shuts down the stats reporter
func Stop() {
	if looper != nil {
		looper.Quit()
	}
}
