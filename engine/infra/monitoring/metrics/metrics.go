// Package metrics holds the naming scheme and histogram layouts shared by
// every tally instrument.
package metrics

import "strings"

// Namespace prefixes every instrument name.
const Namespace = "tally"

// DurationBuckets bounds operation and validation latency, in seconds.
var DurationBuckets = []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}

// BatchSizeBuckets bounds the number of records per analyzed transaction log.
var BatchSizeBuckets = []float64{1, 5, 10, 50, 100, 500, 1_000, 10_000}

// Name joins the namespace and the non-empty parts with underscores, trimming
// stray underscores from each part.
//
//	Name("operations_total")                   // tally_operations_total
//	Name("schema", "compiles_total")           // tally_schema_compiles_total
func Name(parts ...string) string {
	segments := []string{Namespace}
	for _, p := range parts {
		if p = strings.Trim(p, "_"); p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, "_")
}
