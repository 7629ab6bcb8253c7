// Package statistics answers historical property queries from InfluxDB.
//
// Device telemetry is written to InfluxDB by the ingestion path; this
// package only reads it back. Queries are built as Flux pipelines over
// the device_metrics measurement and aggregated server-side with
// aggregateWindow, so the hub never streams raw points.
package statistics
