// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporter implementations.
//
// Both the Prometheus and OTel exporters read these definitions, so they
// always agree on names and bounds. Changes here affect every exporter.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
