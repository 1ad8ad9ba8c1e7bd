package server

import (
	"errors"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	compileTotal    *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		compileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qsql_compile_total",
				Help: "Total of compiled queries by target and status",
			},
			[]string{"target", "status"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qsql_compile_duration_seconds",
				Help:    "Time spent decoding and compiling a query",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"target"},
		),
	}
	registry.MustRegister(m.compileTotal, m.compileDuration, newBuildInfo())
	return m
}

func (m *metrics) observe(target string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
		var badReq badRequestError
		if errors.As(err, &badReq) {
			status = "invalid"
		}
	}
	m.compileTotal.WithLabelValues(target, status).Inc()
	m.compileDuration.WithLabelValues(target).Observe(elapsed.Seconds())
}

// newBuildInfo creates the qsql_build_info gauge, sampled once since
// it never changes.
func newBuildInfo() prometheus.Collector {
	goVersion := "undefined"
	revision := "undefined"

	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				revision = setting.Value
			}
		}
	}

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qsql_build_info",
			Help: "Build information of qsql",
		},
		[]string{"revision", "goversion"},
	)
	buildInfo.With(prometheus.Labels{
		"goversion": goVersion,
		"revision":  revision,
	}).Set(1.0)
	return buildInfo
}
