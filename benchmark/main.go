// Package main provides a performance benchmarking tool for the covdelta CLI.
// It generates synthetic Cobertura reports of increasing size and measures how long
// 'covdelta compare' takes, running each size multiple times without the report cache
// and with it, treating the first cached run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - covdelta binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the synthetic reports and the cache database are written
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Size        string
	Classes     int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Sizes       []string
	Classes     map[string]int
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Sizes:       []string{"small", "medium", "large", "huge"},
		Classes: map[string]int{
			"small":  50,
			"medium": 500,
			"large":  5000,
			"huge":   25000,
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the covdelta binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("covdelta"); err != nil {
		return fmt.Errorf("covdelta binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks executes the benchmark for every configured report size
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Sizes), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, size := range config.Sizes {
		classes := config.Classes[size]
		reference := filepath.Join(config.WorkDir, size+"-reference.xml")
		current := filepath.Join(config.WorkDir, size+"-current.xml")
		if err := writeReport(reference, classes, 2); err != nil {
			fmt.Printf("Skipping %s: %v\n", size, err)
			continue
		}
		if err := writeReport(current, classes, 3); err != nil {
			fmt.Printf("Skipping %s: %v\n", size, err)
			continue
		}
		results = append(results, runBenchmarkSuite(config, size, classes, reference, current))
	}

	return results
}

// writeReport writes a Cobertura report with the given number of classes. Every
// coveredEvery-th line is covered so the two sides of a comparison differ.
func writeReport(path string, classes, coveredEvery int) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" ?>` + "\n")
	b.WriteString(`<coverage version="1.9" timestamp="1600000000"><sources><source>/bench</source></sources><packages>` + "\n")
	for c := range classes {
		if c%100 == 0 {
			if c > 0 {
				b.WriteString("</classes></package>\n")
			}
			fmt.Fprintf(&b, `<package name="pkg%d"><classes>`+"\n", c/100)
		}
		fmt.Fprintf(&b, `<class name="pkg%d.Class%d" filename="pkg%d/Class%d.java"><methods><method name="run" signature="()V"><lines>`, c/100, c, c/100, c)
		for l := 1; l <= 10; l++ {
			fmt.Fprintf(&b, `<line number="%d" hits="%d"/>`, l, hits(l, coveredEvery))
		}
		b.WriteString(`</lines></method></methods><lines>`)
		for l := 1; l <= 10; l++ {
			fmt.Fprintf(&b, `<line number="%d" hits="%d"/>`, l, hits(l, coveredEvery))
		}
		b.WriteString("</lines></class>\n")
	}
	b.WriteString("</classes></package></packages></coverage>\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func hits(line, coveredEvery int) int {
	if line%coveredEvery == 0 {
		return 1
	}
	return 0
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for one report size
func runBenchmarkSuite(config BenchmarkConfig, size string, classes int, reference, current string) BenchmarkResult {
	fmt.Printf("Running compare on %s reports (%d classes)\n", size, classes)
	cacheDB := filepath.Join(config.WorkDir, size+"-cache.db")
	_ = os.Remove(cacheDB)

	// Helper to run a benchmark phase
	runPhase := func(cacheArgs []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, reference, current, cacheArgs, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase([]string{"--cache-backend", "none"}, config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase([]string{"--cache-backend", "sqlite", "--cache-db-connect", cacheDB}, config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Size:        size,
		Classes:     classes,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes covdelta compare multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, reference, current string, cacheArgs []string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"compare",
		"--reference", "cobertura:" + reference,
		"--current", "cobertura:" + current,
		"--history-backend", "none",
		"--color", "no",
	}
	args = append(args, cacheArgs...)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("covdelta", args...)
		cmd.Dir = config.WorkDir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "compared against reference") &&
		strings.Contains(outputStr, "Completed in")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/covdelta_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"size", "classes", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Size, fmt.Sprint(result.Classes), result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	fmt.Printf("Compare:\n")
	for _, result := range results {
		fmt.Printf("  %-8s (%6d classes): No-cache: %s, Cold: %s, Warm: %s\n",
			result.Size, result.Classes, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
