// Command pubtkt-perfcheck compares two `go test -bench` outputs and fails
// when a tracked benchmark regressed past the threshold. Medians are compared
// so -count=N runs smooth out noise.
//
//	go test -run=^$ -bench=Authenticate -count=5 . > new.txt
//	pubtkt-perfcheck --baseline old.txt --candidate new.txt
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const defaultThreshold = 0.30

// The cached path is the hot path; the uncached paths are dominated by the
// public-key operation and only ns/op is tracked for them.
var defaultTracked = map[string][]string{
	"BenchmarkAuthenticateCached":          {"ns/op", "allocs/op"},
	"BenchmarkAuthenticateParallelCached":  {"ns/op"},
	"BenchmarkAuthenticateUncachedRSA":     {"ns/op"},
	"BenchmarkAuthenticateUncachedEd25519": {"ns/op"},
	"BenchmarkParse":                       {"ns/op", "allocs/op"},
}

type sampleSet map[string]map[string][]float64

func main() {
	failures, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pubtkt-perfcheck: %v\n", err)
		os.Exit(2)
	}
	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) ([]string, error) {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
		benches       []string
	)

	flagSet := pflag.NewFlagSet("pubtkt-perfcheck", pflag.ContinueOnError)
	flagSet.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flagSet.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flagSet.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flagSet.StringSliceVar(&benches, "bench", nil, "benchmark[:unit] to track, replacing the defaults (repeatable)")
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	if baselinePath == "" || candidatePath == "" {
		return nil, errors.New("--baseline and --candidate are required")
	}
	if threshold < 0 {
		return nil, errors.New("--threshold must be >= 0")
	}

	tracked := defaultTracked
	if len(benches) > 0 {
		tracked = parseTracked(benches)
	}

	baseline, err := parseBenchmarkFile(baselinePath, tracked)
	if err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	candidate, err := parseBenchmarkFile(candidatePath, tracked)
	if err != nil {
		return nil, fmt.Errorf("parse candidate: %w", err)
	}

	return compare(stdout, baseline, candidate, tracked, threshold), nil
}

// parseTracked turns "BenchmarkX:ns/op" entries into a tracking table. A bare
// name tracks ns/op.
func parseTracked(entries []string) map[string][]string {
	out := make(map[string][]string, len(entries))
	for _, e := range entries {
		name, unit, ok := strings.Cut(e, ":")
		if !ok {
			unit = "ns/op"
		}
		out[name] = append(out[name], unit)
	}
	return out
}

func compare(w io.Writer, baseline, candidate sampleSet, tracked map[string][]string, threshold float64) []string {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	fmt.Fprintln(w, "perf regression check:")
	fmt.Fprintln(w, "benchmark metric baseline candidate delta")

	for _, benchmark := range names {
		for _, metric := range tracked[benchmark] {
			baseSamples := baseline[benchmark][metric]
			candidateSamples := candidate[benchmark][metric]
			if len(baseSamples) == 0 || len(candidateSamples) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(baseSamples)
			candidateMedian := median(candidateSamples)
			if baseMedian <= 0 {
				// 0 allocs/op: any allocation is a regression.
				if candidateMedian > 0 {
					failures = append(failures, fmt.Sprintf("%s %s rose from 0 to %.3f", benchmark, metric, candidateMedian))
				}
				fmt.Fprintf(w, "%s %s %.3f %.3f n/a\n", benchmark, metric, baseMedian, candidateMedian)
				continue
			}

			delta := (candidateMedian - baseMedian) / baseMedian
			fmt.Fprintf(w, "%s %s %.3f %.3f %+0.2f%%\n", benchmark, metric, baseMedian, candidateMedian, delta*100)
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return failures
}

func parseBenchmarkFile(path string, tracked map[string][]string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file, tracked)
}

func parseBenchmarks(r io.Reader, tracked map[string][]string) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}

		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// normalizeBenchmarkName strips the -GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	mid := len(copied) / 2
	if len(copied)%2 == 1 {
		return copied[mid]
	}
	return (copied[mid-1] + copied[mid]) / 2
}
