// Command diskbench is a thin driver over pkg/plan, pkg/sweep, and
// pkg/deviceinfo. It exists to exercise the core end to end, not as a
// full-featured CLI: flag parsing and output formatting are explicitly
// out of scope for the core packages, so they live here instead.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreio-bench/diskbench/pkg/deviceinfo"
	"github.com/coreio-bench/diskbench/pkg/model"
	"github.com/coreio-bench/diskbench/pkg/plan"
	"github.com/coreio-bench/diskbench/pkg/sink"
	"github.com/coreio-bench/diskbench/pkg/sweep"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd()
	case "sweep":
		sweepCmd()
	case "agent":
		agentCmd()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: diskbench <run|sweep|agent> [flags]")
}

// runCmd handles "diskbench run -plan <file>".
func runCmd() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	planFile := fs.String("plan", "", "Path to a plan YAML file")
	reportFile := fs.String("report", "", "Write the JSON benchmark result to this file")
	metricsAddr := fs.String("metrics-addr", "", "If set, serve Prometheus metrics on this address while the run executes")
	fs.Parse(os.Args[2:])

	if *planFile == "" {
		fmt.Println("Error: -plan is required")
		os.Exit(1)
	}

	p, err := plan.Load(*planFile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	targets := []sink.Sink{sink.Console{}}
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		prom := sink.NewPrometheus(reg)
		targets = append(targets, prom)

		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Printf("metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("serving metrics on %s\n", *metricsAddr)
	}

	cancel := make(chan struct{})
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		close(cancel)
	}()

	result, err := plan.Run(*p, plan.Options{Sink: sink.FanOut{Targets: targets}, Cancel: cancel})
	if err != nil {
		fmt.Printf("run failed: %v\n", err)
		os.Exit(1)
	}

	if *reportFile != "" {
		if err := writeJSONReport(*reportFile, result); err != nil {
			fmt.Printf("failed to write report: %v\n", err)
		}
	}
}

// sweepCmd handles "diskbench sweep -path ... -dimension queue_depth -values 1,2,4,8".
func sweepCmd() {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	path := fs.String("path", "", "Target file path")
	fileSize := fs.Int64("file-size", 1<<30, "Test file size in bytes")
	blockSize := fs.Int("block-size", 4096, "Block size in bytes")
	dimension := fs.String("dimension", "queue_depth", "Dimension to sweep: queue_depth, block_size, or threads")
	values := fs.String("values", "1,2,4,8,16,32", "Comma-separated values to sweep through")
	duration := fs.Duration("duration", 2*time.Second, "Measured duration per step")
	fs.Parse(os.Args[2:])

	if *path == "" {
		fmt.Println("Error: -path is required")
		os.Exit(1)
	}

	dim, err := parseDimension(*dimension)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	vals, err := parseIntList(*values)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	result, err := sweep.Run(sweep.Options{
		Base: model.Workload{
			Name:       "sweep",
			Path:       *path,
			FileSize:   *fileSize,
			BlockSize:  *blockSize,
			Pattern:    model.Random,
			QueueDepth: 1,
			Threads:    1,
		},
		Dimension:        dim,
		Values:           vals,
		MeasuredDuration: *duration,
		OnStep: func(i, total int, step sweep.Step) {
			fmt.Printf("[%d/%d] %s=%d: %.0f IOPS\n", i+1, total, dim, step.Value, step.IOPS)
		},
	})
	if err != nil {
		fmt.Printf("sweep failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nknee at %s=%d (%.0f IOPS)\n", dim, result.Knee.OriginalValue, result.Knee.Y)
	if result.LinearRegion.InlierCount > 0 {
		fmt.Printf("dominant linear region: %s in [%.0f, %.0f], slope=%.2f (%d/%d points)\n",
			dim, result.LinearRegion.StartX, result.LinearRegion.EndX,
			result.LinearRegion.Slope, result.LinearRegion.InlierCount, len(vals))
	}
}

// agentCmd handles "diskbench agent -port 9000", a remote device-info
// server for RemoteProvider to query from another host.
func agentCmd() {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	port := fs.Int("port", 9000, "Port to listen on")
	fs.Parse(os.Args[2:])

	srv := &deviceinfo.Server{Provider: deviceinfo.LocalProvider{}}
	fmt.Printf("device-info agent listening on :%d\n", *port)
	if err := srv.ListenAndServe(*port); err != nil {
		fmt.Printf("agent failed: %v\n", err)
		os.Exit(1)
	}
}

func parseDimension(s string) (sweep.Dimension, error) {
	switch s {
	case "queue_depth":
		return sweep.QueueDepth, nil
	case "block_size":
		return sweep.BlockSize, nil
	case "threads":
		return sweep.Threads, nil
	default:
		return 0, fmt.Errorf("unknown dimension %q (want queue_depth, block_size, or threads)", s)
	}
}

func parseIntList(s string) ([]int, error) {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				v, err := parseInt(s[start:i])
				if err != nil {
					return nil, fmt.Errorf("invalid value %q: %w", s[start:i], err)
				}
				out = append(out, v)
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return out, nil
}

func parseInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

func writeJSONReport(path string, result *model.BenchmarkResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
