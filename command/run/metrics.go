package run

import (
	"strings"

	"github.com/armon/go-metrics"
	promsink "github.com/armon/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsService = "executive"

// setupTelemetry routes the executive metrics to a prometheus sink on the
// default registry
func setupTelemetry() error {
	sink, err := promsink.NewPrometheusSinkFrom(promsink.PrometheusOpts{
		Name:       "executive_prometheus_sink",
		Expiration: 0,
	})
	if err != nil {
		return err
	}

	metricsConf := metrics.DefaultConfig(metricsService)
	metricsConf.EnableHostname = false
	metricsConf.EnableRuntimeMetrics = false

	_, err = metrics.NewGlobal(metricsConf, sink)

	return err
}

// gatherMetrics collects the executive families of the default registry
func gatherMetrics() ([]*MetricResult, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	res := []*MetricResult{}

	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), metricsService+"_") {
			continue
		}

		kind := family.GetType().String()

		for _, m := range family.GetMetric() {
			var value float64

			switch kind {
			case "COUNTER":
				value = m.GetCounter().GetValue()
			case "GAUGE":
				value = m.GetGauge().GetValue()
			case "SUMMARY":
				value = m.GetSummary().GetSampleSum()
			default:
				continue
			}

			res = append(res, &MetricResult{
				Name:  family.GetName(),
				Type:  strings.ToLower(kind),
				Value: value,
			})
		}
	}

	return res, nil
}
