package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"Should prefix a single part", []string{"operations_total"}, "tally_operations_total"},
		{"Should join a subsystem", []string{"schema", "compiles_total"}, "tally_schema_compiles_total"},
		{"Should trim stray underscores", []string{"_schema_", "cache_size"}, "tally_schema_cache_size"},
		{"Should skip empty parts", []string{"", "tax", ""}, "tally_tax"},
		{"Should return the namespace alone", nil, "tally"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.parts...))
		})
	}
}

func TestBuckets(t *testing.T) {
	t.Run("Should be strictly increasing", func(t *testing.T) {
		for _, buckets := range [][]float64{DurationBuckets, BatchSizeBuckets} {
			for i := 1; i < len(buckets); i++ {
				assert.Less(t, buckets[i-1], buckets[i])
			}
		}
	})
}
