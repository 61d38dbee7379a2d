package logger

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// LogMetric logs metric under component and, when CloudWatch is initialised,
// publishes numeric values with component and every string field as
// dimensions.
func (e *Entry) LogMetric(component, metric string, value interface{}, metricType string, fields Fields) {
	if metricType == "" {
		metricType = "counter"
	}
	payload := Fields{"metric": metric, "value": value, "metric_type": metricType}
	dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(component)}}
	for k, v := range fields {
		payload[k] = v
		if s, ok := v.(string); ok {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(s)})
		}
	}
	e.WithComponent(component).WithFields(payload).Info("metric")

	val, ok := toFloat(value)
	if !ok {
		return
	}
	publishMetrics(context.Background(), []cwtypes.MetricDatum{{
		MetricName: aws.String(metric),
		Dimensions: dims,
		Unit:       cwtypes.StandardUnitCount,
		Value:      aws.Float64(val),
	}})
}

func (l *Log) LogMetric(component, metric string, value interface{}, metricType string, fields Fields) {
	l.WithComponent(component).LogMetric(component, metric, value, metricType, fields)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// LogPerformanceEntry records how long an operation took.
func LogPerformanceEntry(entry *Entry, component, operation string, duration time.Duration, fields Fields) {
	payload := Fields{
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
		"operation":   operation,
	}
	for k, v := range fields {
		payload[k] = v
	}
	entry.WithFields(payload).WithComponent(component).Info("performance metric")
}

// LogDataFlowEntry records how many records moved between two stages.
func LogDataFlowEntry(entry *Entry, source, destination string, recordCount int, dataType string) {
	entry.WithFields(Fields{
		"source":       source,
		"destination":  destination,
		"record_count": recordCount,
		"data_type":    dataType,
		"flow_type":    "data_flow",
	}).Info("data flow metric")
}
