package telemetry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter counts every event on a per-name counter and records it as a
// span event on the span carried by ctx, if any.
type OTelEmitter struct {
	meter metric.Meter

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
}

// NewOTelEmitter builds an emitter on meter. A nil meter uses the global one.
func NewOTelEmitter(meter metric.Meter) *OTelEmitter {
	if meter == nil {
		meter = Meter()
	}
	return &OTelEmitter{
		meter:    meter,
		counters: make(map[string]metric.Int64Counter),
	}
}

func (o *OTelEmitter) Emit(ctx context.Context, name string, attrs Attributes) {
	kvs := toKeyValues(attrs)

	if c := o.counter(name); c != nil {
		c.Add(ctx, 1, metric.WithAttributes(kvs...))
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(kvs...))
	}
}

func (o *OTelEmitter) counter(name string) metric.Int64Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.counters[name]; ok {
		return c
	}
	c, err := o.meter.Int64Counter("agentgate." + name)
	if err != nil {
		return nil
	}
	o.counters[name] = c
	return c
}

func toKeyValues(attrs Attributes) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case string:
			kvs = append(kvs, attribute.String(k, v))
		case bool:
			kvs = append(kvs, attribute.Bool(k, v))
		case int:
			kvs = append(kvs, attribute.Int(k, v))
		case int64:
			kvs = append(kvs, attribute.Int64(k, v))
		case float64:
			kvs = append(kvs, attribute.Float64(k, v))
		case fmt.Stringer:
			kvs = append(kvs, attribute.String(k, v.String()))
		default:
			kvs = append(kvs, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return kvs
}
