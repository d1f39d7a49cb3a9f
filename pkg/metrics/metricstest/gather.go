// Package metricstest reads values back out of a prometheus registry in tests.
package metricstest

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CounterValue returns the counter sample of name whose labels include all of labels.
func CounterValue(g prometheus.Gatherer, name string, labels map[string]string) (float64, error) {
	metric, err := find(g, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

// HistogramCount returns the number of observations recorded for name.
func HistogramCount(g prometheus.Gatherer, name string, labels map[string]string) (uint64, error) {
	metric, err := find(g, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleCount(), nil
}

func find(g prometheus.Gatherer, name string, labels map[string]string) (*dto.Metric, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric, nil
			}
		}
		return nil, fmt.Errorf("metric %q missing labels %v", name, labels)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
