package internaldefs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCumulativeBuckets(t *testing.T) {
	require.Equal(t, [BucketCount]uint64{1, 3, 6, 10, 15, 21, 28, 36}, CumulativeBuckets([]uint64{1, 2, 3, 4, 5, 6, 7, 8}))
	require.Equal(t, [BucketCount]uint64{2, 2, 2, 2, 2, 2, 2, 2}, CumulativeBuckets([]uint64{2}))
	require.Equal(t, [BucketCount]uint64{}, CumulativeBuckets(nil))
}

func TestDefinitionNamesUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, def := range append(append([]Def{}, CounterDefs...), HistogramDefs...) {
		require.False(t, seen[def.Name], def.Name)
		seen[def.Name] = true
	}
}
