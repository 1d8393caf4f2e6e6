package host

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaForLine(t *testing.T) {
	for _, tt := range []struct {
		line string
		want []string
	}{
		{
			"cpu  100 0 50 1000 3 0 1",
			[]string{"user", "nice", "system", "idle", "iowait", "irq", "softirq"},
		},
		{
			"cpu  100 0 50 1000 3 0 1 0",
			[]string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal"},
		},
		{
			"cpu  100 0 50 1000 3 0 1 0 0 0",
			cpuFields,
		},
		{
			// Columns from some future kernel are ignored.
			"cpu  100 0 50 1000 3 0 1 0 0 0 7",
			cpuFields,
		},
	} {
		got, err := schemaForLine(tt.line)
		require.NoError(t, err, tt.line)
		require.Equal(t, tt.want, got, tt.line)
	}
}

func TestSchemaForLineBad(t *testing.T) {
	for _, line := range []string{
		"",
		"intr 1 2 3",
		"cpu  100 0 50 1000",
	} {
		_, err := schemaForLine(line)
		require.Error(t, err, line)
	}
}

func TestCPUTimesGet(t *testing.T) {
	times := &CPUTimesStat{Fields: cpuFields[:7], User: 1.5, SoftIRQ: 2}
	v, ok := times.Get("user")
	require.True(t, ok)
	require.Equal(t, 1.5, v)
	v, ok = times.Get("softirq")
	require.True(t, ok)
	require.Equal(t, 2.0, v)
	_, ok = times.Get("steal")
	require.False(t, ok)
}

func TestLiveCPU(t *testing.T) {
	n, err := NumCPU()
	require.NoError(t, err)
	require.True(t, n > 0)
	per, err := PerCPUTimes()
	require.NoError(t, err)
	require.Len(t, per, n)
	total, err := CPUTimes()
	require.NoError(t, err)
	require.True(t, len(total.Fields) >= minCPUFields)
	boot, err := BootTime()
	require.NoError(t, err)
	again, err := BootTime()
	require.NoError(t, err)
	require.Equal(t, boot, again)
}
