package statistics

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Aggregation functions accepted in Query.Type, mapped to the Flux
// function applied per window.
var aggregations = map[string]string{
	"mean": "mean",
	"min":  "min",
	"max":  "max",
	"sum":  "sum",
	"last": "last",
}

// durationRE matches Flux duration literals like 30s, 5m, 1h, 7d.
var durationRE = regexp.MustCompile(`^[0-9]+(ms|s|m|h|d|w)$`)

// identRE constrains identifiers interpolated into the Flux pipeline.
// Homie ids are lowercase alphanumerics and hyphens; property ids may
// carry a $ prefix for attribute properties.
var identRE = regexp.MustCompile(`^[\w$:-]+$`)

// Query describes one statistics request for a single device property.
type Query struct {
	DeviceID    string `json:"deviceId"`
	NodeID      string `json:"nodeId"`
	PropertyID  string `json:"propertyId"`
	Type        string `json:"type"`
	Granularity string `json:"granularity"`
	Range       string `json:"range"`
}

// Point is one aggregated sample of the resulting series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// validate checks every field against the grammar it is interpolated
// under. Nothing user-supplied reaches the Flux source unchecked.
func (q Query) validate() error {
	for _, id := range []struct{ name, v string }{
		{"deviceId", q.DeviceID},
		{"nodeId", q.NodeID},
		{"propertyId", q.PropertyID},
	} {
		if id.v == "" || !identRE.MatchString(id.v) {
			return fmt.Errorf("%w: bad %s %q", ErrInvalidQuery, id.name, id.v)
		}
	}
	if _, ok := aggregations[q.Type]; !ok {
		return fmt.Errorf("%w: unknown aggregation %q", ErrInvalidQuery, q.Type)
	}
	if !durationRE.MatchString(q.Granularity) {
		return fmt.Errorf("%w: bad granularity %q", ErrInvalidQuery, q.Granularity)
	}
	if !durationRE.MatchString(q.Range) {
		return fmt.Errorf("%w: bad range %q", ErrInvalidQuery, q.Range)
	}
	return nil
}

// flux renders the query as a Flux pipeline over the given bucket.
func (q Query) flux(bucket string) (string, error) {
	if err := q.validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: -%s)\n", q.Range)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == \"device_metrics\")\n")
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r.device_id == %q and r.node_id == %q and r.property_id == %q)\n",
		q.DeviceID, q.NodeID, q.PropertyID)
	fmt.Fprintf(&b, "  |> aggregateWindow(every: %s, fn: %s, createEmpty: false)", q.Granularity, aggregations[q.Type])
	return b.String(), nil
}
