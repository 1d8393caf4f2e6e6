package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConf(t *testing.T) {
	conf, err := parseConf(strings.NewReader(`
graphite_addr = "localhost:2003"
namespace = "hosts.web1"
interval_ms = 5000
processes = ["nginx", "postgres"]
`), "test.toml")
	require.NoError(t, err)
	require.Equal(t, &Conf{
		GraphiteAddr: "localhost:2003",
		Namespace:    "hosts.web1",
		IntervalMS:   5000,
		Processes:    []string{"nginx", "postgres"},
	}, conf)
}

func TestParseConfMissingFields(t *testing.T) {
	_, err := parseConf(strings.NewReader(`
namespace = "hosts.web1"
debug = true
`), "test.toml")
	require.EqualError(t, err, "missing fields in test.toml: [graphite_addr interval_ms processes]")
}

func TestParseConfBadTOML(t *testing.T) {
	_, err := parseConf(strings.NewReader(`graphite_addr = `), "test.toml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "error decoding test.toml")
}

func TestEmptyFields(t *testing.T) {
	type s struct {
		A string `toml:"a"`
		B int    `toml:"b"`
		C []int  `toml:"c"`
		D bool   `toml:"d,omitempty"`
	}
	for _, tt := range []struct {
		v    s
		want []string
	}{
		{s{}, []string{"a", "b", "c"}},
		{s{A: "x", C: []int{}}, []string{"b", "c"}},
		{s{A: "x", B: 1, C: []int{1}}, []string{}},
	} {
		v := tt.v
		require.Equal(t, tt.want, emptyFields(&v))
	}
}

func TestSanitizeKey(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want string
	}{
		{"nginx", "nginx"},
		{"kworker/0:1", "kworker-0:1"},
		{"my app", "my_app"},
		{"python3.11", "python3_11"},
		{"<x>[y]{z}*", "xyz"},
		{"tab\there\x7f", "tabhere"},
	} {
		if got := sanitizeKey(tt.in); got != tt.want {
			t.Errorf("sanitizeKey(%q): got %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNamespaceParts(t *testing.T) {
	require.Equal(t, []string{"hosts", "web_1", "procs"}, namespaceParts("hosts.web 1.procs"))
}
