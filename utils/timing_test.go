package utils

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestPrintTimingStats(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	defer func() { Output, Verbose = oldOut, oldVerbose }()
	Output = &buf

	stats := &TimingStats{
		TotalTime:     10 * time.Millisecond,
		BuildTime:     2 * time.Millisecond,
		TransformTime: 5 * time.Millisecond,
		VerifyTime:    3 * time.Millisecond,
	}

	Verbose = false
	PrintTimingStats(stats)
	if buf.Len() != 0 {
		t.Fatalf("expected no output when Verbose is false, got %q", buf.String())
	}

	Verbose = true
	PrintTimingStats(stats)
	out := buf.String()
	if !strings.Contains(out, "Transform: 5ms (50.0%)") {
		t.Errorf("missing transform line in %q", out)
	}
	if strings.Contains(out, "Encryption") {
		t.Errorf("plaintext run should not report encryption: %q", out)
	}
}
