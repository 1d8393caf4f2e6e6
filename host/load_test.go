package host

import (
	"testing"
)

func TestLoadAveragesFixture(t *testing.T) {
	withProcFiles(t, map[string]string{"loadavg": "0.52 0.58 0.59 2/853 12345\n"})
	got, err := LoadAverages()
	if err != nil {
		t.Fatal(err)
	}
	want := [3]float64{0.52, 0.58, 0.59}
	for i := range want {
		approx(t, got[i], want[i])
	}
}

func TestLoadAveragesBad(t *testing.T) {
	for _, bad := range []string{"", "0.52 0.58", "0.52 x 0.59"} {
		withProcFiles(t, map[string]string{"loadavg": bad})
		if _, err := LoadAverages(); err == nil {
			t.Errorf("LoadAverages with loadavg %q: got nil error", bad)
		}
	}
}

func TestLoadAverages(t *testing.T) {
	avgs, err := LoadAverages()
	if err != nil {
		t.Fatal(err)
	}
	for _, avg := range avgs {
		if avg < 0 {
			t.Fatalf("negative load average in %v", avgs)
		}
	}
}

func TestUsagePercent(t *testing.T) {
	approx(t, usagePercent(25, 200), 12.5)
	if got := usagePercent(1, 0); got != 0 {
		t.Fatalf("got %v for a zero total; want 0", got)
	}
}
