package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether reports and timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where reports and timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for the phases of one oracle run
type TimingStats struct {
	TotalTime      time.Duration
	BuildTime      time.Duration
	HEInitTime     time.Duration
	EncryptionTime time.Duration
	TransformTime  time.Duration
	DecryptionTime time.Duration
	VerifyTime     time.Duration
}

// PrintTimingStats prints the phase breakdown.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	printPhase("Index tensor build", stats.BuildTime, stats.TotalTime)
	if stats.HEInitTime > 0 {
		printPhase("HE initialization", stats.HEInitTime, stats.TotalTime)
		printPhase("Encryption", stats.EncryptionTime, stats.TotalTime)
	}
	printPhase("Transform", stats.TransformTime, stats.TotalTime)
	if stats.DecryptionTime > 0 {
		printPhase("Decryption", stats.DecryptionTime, stats.TotalTime)
	}
	printPhase("Verification", stats.VerifyTime, stats.TotalTime)
}

func printPhase(name string, d, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(d) / float64(total) * 100
	}
	fmt.Fprintf(Output, "  %s: %v (%.1f%%)\n", name, d, pct)
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
