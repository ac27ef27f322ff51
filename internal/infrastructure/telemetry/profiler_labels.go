package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelOperation  = "operation"
	// ProfilingLabelRegion names a hot region such as "invoice_row_lock"
	ProfilingLabelRegion = "region"
)

// MaxLabelValueLength truncates label values
const MaxLabelValueLength = 128

// Identifiers make one profile series per record and are never used as labels.
var perRecordLabels = map[string]struct{}{
	"user_id":        {},
	"employee_id":    {},
	"customer_id":    {},
	"request_id":     {},
	"invoice_id":     {},
	"invoice_number": {},
	"payment_id":     {},
	"trace_id":       {},
	"span_id":        {},
}

// WithProfilingLabels runs fn with pprof labels attached, so Pyroscope can
// slice CPU and allocation profiles by them. Per-record identifiers, empty
// values and keys that sanitize to nothing are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels returns key/value pairs sorted by key
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		value := labels[key]
		if value == "" {
			continue
		}
		if _, drop := perRecordLabels[key]; drop {
			continue
		}
		clean := sanitizeLabelKey(key)
		if clean == "" {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, clean, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases key, turns spaces and dashes into underscores
// and strips everything else outside [a-z0-9_].
func sanitizeLabelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-':
			return '_'
		}
		return -1
	}, key)
}

// HTTPRequestLabels labels a request by handler, route and method
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	for k, v := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
	} {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// OperationLabels labels a service operation plus any extra labels
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := maps.Clone(extra)
	if labels == nil {
		labels = make(map[string]string, 1)
	}
	labels[ProfilingLabelOperation] = operation
	return labels
}
