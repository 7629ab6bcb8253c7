package statistics

import (
	"errors"
	"strings"
	"testing"
)

func TestQueryFlux(t *testing.T) {
	q := Query{
		DeviceID:    "d1",
		NodeID:      "n1",
		PropertyID:  "power",
		Type:        "mean",
		Granularity: "1h",
		Range:       "24h",
	}

	flux, err := q.flux("haven")
	if err != nil {
		t.Fatalf("flux() error = %v", err)
	}

	for _, want := range []string{
		`from(bucket: "haven")`,
		`range(start: -24h)`,
		`r._measurement == "device_metrics"`,
		`r.device_id == "d1" and r.node_id == "n1" and r.property_id == "power"`,
		`aggregateWindow(every: 1h, fn: mean, createEmpty: false)`,
	} {
		if !strings.Contains(flux, want) {
			t.Errorf("flux missing %q:\n%s", want, flux)
		}
	}
}

func TestQueryValidate(t *testing.T) {
	valid := Query{
		DeviceID:    "d1",
		NodeID:      "n1",
		PropertyID:  "power",
		Type:        "mean",
		Granularity: "1h",
		Range:       "24h",
	}

	tests := []struct {
		name   string
		mutate func(*Query)
	}{
		{"empty deviceId", func(q *Query) { q.DeviceID = "" }},
		{"flux injection in nodeId", func(q *Query) { q.NodeID = `n1") or true or ("` }},
		{"unknown aggregation", func(q *Query) { q.Type = "stddev" }},
		{"bad granularity", func(q *Query) { q.Granularity = "hourly" }},
		{"bad range", func(q *Query) { q.Range = "-24h" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			if err := q.validate(); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}

	if err := valid.validate(); err != nil {
		t.Errorf("valid query rejected: %v", err)
	}
}

func TestQueryValidate_AttributeProperty(t *testing.T) {
	q := Query{
		DeviceID:    "d1",
		NodeID:      "n1",
		PropertyID:  "$online",
		Type:        "last",
		Granularity: "5m",
		Range:       "7d",
	}
	if err := q.validate(); err != nil {
		t.Errorf("attribute property rejected: %v", err)
	}
}
