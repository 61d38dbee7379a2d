package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type streamStat struct {
	fetches int64
	samples int64
}

var (
	errorCount   int64
	warnCount    int64
	fetchCount   int64
	sampleCount  int64
	filesWritten int64
	bytesWritten int64
	uploads      int64
	streams      sync.Map // map[string]*streamStat
)

func recordWarn(string) {
	atomic.AddInt64(&warnCount, 1)
}

func recordError(string) {
	atomic.AddInt64(&errorCount, 1)
}

// IncrementFetch records one completed fetch of a parameter stream.
func IncrementFetch(parameter string, samples int) {
	atomic.AddInt64(&fetchCount, 1)
	atomic.AddInt64(&sampleCount, int64(samples))
	v, _ := streams.LoadOrStore(parameter, &streamStat{})
	st := v.(*streamStat)
	atomic.AddInt64(&st.fetches, 1)
	atomic.AddInt64(&st.samples, int64(samples))
}

// IncrementFileWritten records one exported file of size bytes.
func IncrementFileWritten(size int) {
	atomic.AddInt64(&filesWritten, 1)
	atomic.AddInt64(&bytesWritten, int64(size))
}

// IncrementUpload records one object uploaded to S3.
func IncrementUpload() {
	atomic.AddInt64(&uploads, 1)
}

// ErrorCount returns the number of errors logged through Entry.Error.
func ErrorCount() int64 {
	return atomic.LoadInt64(&errorCount)
}

// ResetCounters clears all run counters.
func ResetCounters() {
	atomic.StoreInt64(&errorCount, 0)
	atomic.StoreInt64(&warnCount, 0)
	atomic.StoreInt64(&fetchCount, 0)
	atomic.StoreInt64(&sampleCount, 0)
	atomic.StoreInt64(&filesWritten, 0)
	atomic.StoreInt64(&bytesWritten, 0)
	atomic.StoreInt64(&uploads, 0)
	streams.Range(func(k, _ any) bool {
		streams.Delete(k)
		return true
	})
}

// Summary logs the run counters once and publishes them to CloudWatch when
// configured. It is meant to be called at the end of a run.
func Summary(ctx context.Context, log *Log, elapsed time.Duration) {
	streamData := map[string]map[string]int64{}
	streams.Range(func(k, v any) bool {
		st := v.(*streamStat)
		streamData[k.(string)] = map[string]int64{
			"fetches": atomic.LoadInt64(&st.fetches),
			"samples": atomic.LoadInt64(&st.samples),
		}
		return true
	})

	fields := Fields{
		"errors":        atomic.LoadInt64(&errorCount),
		"warnings":      atomic.LoadInt64(&warnCount),
		"fetches":       atomic.LoadInt64(&fetchCount),
		"samples":       atomic.LoadInt64(&sampleCount),
		"files_written": atomic.LoadInt64(&filesWritten),
		"bytes_written": atomic.LoadInt64(&bytesWritten),
		"uploads":       atomic.LoadInt64(&uploads),
		"goroutines":    runtime.NumGoroutine(),
		"elapsed_ms":    elapsed.Milliseconds(),
		"streams":       streamData,
	}

	log.WithComponent("report").WithFields(fields).Info("run summary")

	count := func(name string, v int64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{MetricName: aws.String(name), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(v))}
	}
	data := []cwtypes.MetricDatum{
		count("Errors", fields["errors"].(int64)),
		count("Fetches", fields["fetches"].(int64)),
		count("Samples", fields["samples"].(int64)),
		count("FilesWritten", fields["files_written"].(int64)),
		count("Uploads", fields["uploads"].(int64)),
		{MetricName: aws.String("BytesWritten"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(fields["bytes_written"].(int64)))},
		{MetricName: aws.String("RunDuration"), Unit: cwtypes.StandardUnitMilliseconds, Value: aws.Float64(float64(elapsed.Milliseconds()))},
	}
	for name, stats := range streamData {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("StreamSamples"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Parameter"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats["samples"])),
		})
	}

	publishMetrics(ctx, data)
}
