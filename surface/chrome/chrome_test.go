package chrome

import (
	"testing"
	"time"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := (&Options{}).withDefaults()
	if opts.StepTimeout != 10*time.Second {
		t.Errorf("StepTimeout = %v", opts.StepTimeout)
	}
	if opts.ResultsTimeout != 20*time.Second {
		t.Errorf("ResultsTimeout = %v", opts.ResultsTimeout)
	}
	if opts.GroupSettle != 3*time.Second {
		t.Errorf("GroupSettle = %v", opts.GroupSettle)
	}

	opts = (&Options{StepTimeout: time.Second, ResultsTimeout: 2 * time.Second, GroupSettle: time.Second}).withDefaults()
	if opts.StepTimeout != time.Second || opts.ResultsTimeout != 2*time.Second || opts.GroupSettle != time.Second {
		t.Errorf("explicit timeouts overridden: %+v", opts)
	}
}

func TestBusCountPattern(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		match bool
	}{
		{"231 Buses found", "231", true},
		{"1 Buses", "1", true},
		{"Oops! No buses found", "", false},
		{"Buses", "", false},
	}
	for _, tt := range tests {
		m := busCountPattern.FindStringSubmatch(tt.in)
		if (m != nil) != tt.match {
			t.Errorf("match(%q) = %v, want %v", tt.in, m != nil, tt.match)
			continue
		}
		if tt.match && m[1] != tt.want {
			t.Errorf("count in %q = %q, want %q", tt.in, m[1], tt.want)
		}
	}
}
