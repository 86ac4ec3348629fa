// Package trial implements the phase machine that runs one trial of one
// workload: warmup, measured, and drain, wired to the offset generator,
// slot pool, completion reactor, histogram, and throughput time series.
package trial

import (
	"math"
	"math/rand"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/coreio-bench/diskbench/pkg/bench"
	"github.com/coreio-bench/diskbench/pkg/clock"
	"github.com/coreio-bench/diskbench/pkg/histogram"
	"github.com/coreio-bench/diskbench/pkg/model"
	"github.com/coreio-bench/diskbench/pkg/offsets"
	"github.com/coreio-bench/diskbench/pkg/reactor"
	"github.com/coreio-bench/diskbench/pkg/series"
	"github.com/coreio-bench/diskbench/pkg/slotpool"
)

const (
	reapTimeout     = 100 * time.Millisecond
	progressTick    = 250 * time.Millisecond
	drainTimeout    = 5 * time.Second
	decisionTableSize = 1 << 16
)

type phase int

const (
	phaseWarmup phase = iota
	phaseMeasured
	phaseDrain
	phaseDone
)

// Options configures one Run call. ActualFileSize resolves a workload's
// region when Region.Length == 0 ("to end of file").
type Options struct {
	WarmupDuration    time.Duration
	MeasuredDuration  time.Duration
	Seed              int64
	TrialNumber       int
	ActualFileSize    int64
	LogicalSectorSize int64
	CollectTimeSeries bool
	TrackAllocations  bool
	PinCore           int // -1 disables core pinning
	RaisePriority     bool
	Progress          func(model.Progress)
	Cancel            <-chan struct{}
	// File, if set, is used instead of opening wl.Path: the caller owns
	// its lifetime and Run will not close it. This is how the plan
	// runner drives a delete-on-close workload, where wl.Path has
	// already been unlinked and the only remaining reference to the
	// file is this handle.
	File *os.File
}

// Run executes one trial of workload and returns its result, or an error
// (InvalidWorkload short-circuits before any file is opened; I/O and
// cancellation failures fail the trial).
func Run(wl model.Workload, opts Options) (*model.TrialResult, error) {
	if err := validateAlignment(wl, opts.LogicalSectorSize); err != nil {
		return nil, err
	}

	poolSize := wl.QueueDepth * wl.Threads
	if poolSize <= 0 {
		return nil, bench.New(bench.InvalidPlan, "queue depth * threads must be positive")
	}

	actualSize := opts.ActualFileSize
	if actualSize == 0 {
		actualSize = wl.FileSize
	}
	region := wl.EffectiveRegion(actualSize)

	pattern := offsets.Sequential
	if wl.Pattern == model.Random {
		pattern = offsets.Random
	}
	off, err := offsets.New(pattern, offsets.Region{Offset: region.Offset, Length: region.Length}, int64(wl.BlockSize), opts.Seed, 0)
	if err != nil {
		return nil, err
	}
	if wl.BypassCache {
		if err := off.ValidateAlignment(opts.LogicalSectorSize); err != nil {
			return nil, err
		}
	}

	file := opts.File
	if file == nil {
		f, ferr := openFile(wl.Path, OpenFlags(wl))
		if ferr != nil {
			return nil, bench.Wrap(bench.PrepareFailed, "open file for trial", ferr)
		}
		file = f
		defer file.Close()
	}

	pool, perr := slotpool.New(poolSize, wl.BlockSize, opts.LogicalSectorSize, wl.WritePercent > 0, opts.Seed+2)
	if perr != nil {
		return nil, bench.Wrap(bench.PrepareFailed, "allocate slot pool", perr)
	}
	defer pool.Close()

	rx, rerr := reactor.New(file, poolSize)
	if rerr != nil {
		return nil, bench.Wrap(bench.IoSubmit, "create completion reactor", rerr)
	}
	defer rx.Close()

	e := &executor{
		wl:     wl,
		opts:   opts,
		off:    off,
		pool:   pool,
		rx:     rx,
		file:   file,
		decide: newDecider(wl.WritePercent, opts.Seed+1),
		hist:   histogram.New(),
	}
	maxSeconds := int(opts.MeasuredDuration.Seconds()) + 2
	if opts.CollectTimeSeries {
		e.series = series.New(maxSeconds)
	}

	applyThreadHints(opts.PinCore, opts.RaisePriority)

	return e.run()
}

type executor struct {
	wl   model.Workload
	opts Options
	off  *offsets.Offsets
	pool *slotpool.Pool
	rx   reactor.Reactor
	file *os.File

	decide func() bool
	hist   *histogram.Histogram
	series *series.Series

	totalBytes        int64
	readOps, writeOps int64
	warnings          []string
	cancelled         bool

	// nextFlushTick is the clock tick of the next periodic flush under
	// FlushPolicy.FlushInterval, or 0 if periodic flushing is disabled.
	nextFlushTick int64
}

// scheduleFlush arms nextFlushTick relative to measuredStart when the
// workload asks for FlushPolicy.FlushInterval. Called whenever
// measuredStart is (re)established, since warmup resets the measured
// window.
func (e *executor) scheduleFlush(measuredStart int64) {
	if e.wl.FlushPolicy == model.FlushInterval && e.wl.WritePercent > 0 && e.wl.FlushInterval > 0 {
		e.nextFlushTick = measuredStart + clock.FromDuration(e.wl.FlushInterval)
	}
}

func (e *executor) run() (*model.TrialResult, error) {
	startTick := clock.Now()
	state := phaseWarmup
	warmupEndTick := startTick + clock.FromDuration(e.opts.WarmupDuration)
	var measuredStart, measuredEndTick int64

	if e.opts.WarmupDuration <= 0 {
		state = phaseMeasured
		measuredStart = startTick
		measuredEndTick = startTick + clock.FromDuration(e.opts.MeasuredDuration)
		e.scheduleFlush(measuredStart)
	}

	var allocBefore, allocAfter uint64
	if e.opts.TrackAllocations {
		allocBefore = allocatedBytes()
	}

	if err := e.submitInitial(startTick); err != nil {
		return nil, err
	}

	lastProgress := startTick
	var drainDeadline int64
	batch := make([]reactor.Completion, e.pool.Size())

	for state != phaseDone {
		now := clock.Now()

		if state == phaseWarmup && now >= warmupEndTick {
			state = phaseMeasured
			e.hist.Reset()
			if e.series != nil {
				e.series.Reset()
			}
			measuredStart = now
			measuredEndTick = now + clock.FromDuration(e.opts.MeasuredDuration)
			e.scheduleFlush(measuredStart)
			if e.opts.TrackAllocations {
				allocBefore = allocatedBytes()
			}
		}

		if state == phaseMeasured && now >= measuredEndTick {
			state = phaseDrain
			_ = e.rx.CancelAll()
			drainDeadline = now + clock.FromDuration(drainTimeout)
		}

		if !e.cancelled {
			select {
			case <-e.opts.Cancel:
				e.cancelled = true
				if state != phaseDrain {
					state = phaseDrain
					_ = e.rx.CancelAll()
					drainDeadline = now + clock.FromDuration(drainTimeout)
				}
			default:
			}
		}

		if state == phaseDrain {
			if e.pool.PendingCount() == 0 {
				state = phaseDone
				break
			}
			if now >= drainDeadline {
				e.warnings = append(e.warnings, "drain timeout exceeded before all I/O completed")
				state = phaseDone
				break
			}
		}

		n, rerr := e.rx.Reap(batch, reapTimeout)
		if rerr != nil {
			return nil, bench.Wrap(bench.IoReap, "trial reap loop", rerr)
		}

		completionNow := clock.Now()
		for _, c := range batch[:n] {
			idx, ok := e.pool.FindByHandle(c.Handle)
			if !ok {
				continue // spurious completion
			}
			slot := e.pool.Slot(idx)
			wasWrite := slot.IsWrite
			submitTick := slot.SubmitTick
			e.pool.MarkIdle(idx)

			if c.Err != nil {
				if bench.Is(c.Err, bench.IoAborted) {
					continue
				}
				return nil, bench.Wrap(bench.IoReap, "completion error", c.Err)
			}
			if c.Bytes <= 0 {
				continue
			}

			if state == phaseMeasured {
				latency := completionNow - submitTick
				e.hist.Record(latency)
				e.totalBytes += c.Bytes
				if wasWrite {
					e.writeOps++
				} else {
					e.readOps++
				}
				if e.series != nil {
					second := int(clock.ToDuration(completionNow - measuredStart).Seconds())
					e.series.Record(second, c.Bytes, 1)
				}
			}

			if wasWrite && e.wl.FlushPolicy == model.FlushEveryIO {
				_ = e.file.Sync()
			}

			if state != phaseDrain && completionNow < measuredEndTick {
				e.reissue(idx, completionNow)
			}
		}

		if now-lastProgress >= clock.FromDuration(progressTick) {
			e.reportProgress(state, startTick, measuredStart, now)
			lastProgress = now

			if state == phaseMeasured && e.nextFlushTick != 0 && now >= e.nextFlushTick {
				_ = e.file.Sync()
				e.nextFlushTick = now + clock.FromDuration(e.wl.FlushInterval)
			}
		}
	}

	if e.opts.TrackAllocations {
		allocAfter = allocatedBytes()
	}

	applyFlushPolicy(e.wl, e.file, &e.warnings)

	if e.cancelled {
		return nil, bench.New(bench.Cancelled, "trial cancelled")
	}

	result := e.buildResult(measuredStart, allocAfter-allocBefore)
	return result, nil
}

func (e *executor) submitInitial(now int64) error {
	for i := 0; i < e.pool.Size(); i++ {
		if err := e.submitOne(i, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) submitOne(idx int, now int64) error {
	offset := e.off.Next()
	isWrite := e.decide()
	slot := e.pool.Slot(idx)
	handle := uint64(idx)
	if err := e.rx.Submit(handle, isWrite, slot.Buf, offset); err != nil {
		return bench.Wrap(bench.IoSubmit, "submit I/O", err)
	}
	e.pool.MarkPending(idx, handle, offset, isWrite, now)
	return nil
}

func (e *executor) reissue(idx int, now int64) {
	_ = e.submitOne(idx, now)
}

func (e *executor) reportProgress(state phase, startTick, measuredStart, now int64) {
	if e.opts.Progress == nil {
		return
	}
	elapsed := clock.ToDuration(now - startTick)
	var rateElapsed time.Duration
	if state == phaseMeasured || state == phaseDrain {
		rateElapsed = clock.ToDuration(now - measuredStart)
	} else {
		rateElapsed = elapsed
	}
	var bps, iops float64
	if secs := rateElapsed.Seconds(); secs > 0 {
		bps = float64(e.totalBytes) / secs
		iops = float64(e.readOps+e.writeOps) / secs
	}
	e.opts.Progress(model.Progress{
		IsWarmup:              state == phaseWarmup,
		IsFinalizing:          state == phaseDrain,
		Elapsed:               elapsed,
		Duration:              e.opts.MeasuredDuration,
		CurrentBytesPerSecond: bps,
		CurrentIOPS:           iops,
		TotalBytes:            e.totalBytes,
		TotalOps:              e.readOps + e.writeOps,
	})
}

func (e *executor) buildResult(measuredStart int64, allocatedDuringMeasured uint64) *model.TrialResult {
	measuredTicks := clock.Now() - measuredStart
	result := &model.TrialResult{
		TrialNumber:      e.opts.TrialNumber,
		TotalBytes:       e.totalBytes,
		TotalOps:         e.readOps + e.writeOps,
		ReadOps:          e.readOps,
		WriteOps:         e.writeOps,
		MeasuredDuration: clock.ToDuration(measuredTicks),
		Latency: model.LatencySummary{
			MinUs:  clock.ToMicros(e.hist.Min()),
			P50Us:  clock.ToMicros(e.hist.Percentile(0.50)),
			P90Us:  clock.ToMicros(e.hist.Percentile(0.90)),
			P95Us:  clock.ToMicros(e.hist.Percentile(0.95)),
			P99Us:  clock.ToMicros(e.hist.Percentile(0.99)),
			P999Us: clock.ToMicros(e.hist.Percentile(0.999)),
			MaxUs:  clock.ToMicros(e.hist.Max()),
			MeanUs: e.hist.Mean() / 1000,
		},
		Warnings: e.warnings,
	}
	if e.series != nil {
		for _, s := range e.series.Snapshot() {
			result.TimeSeries = append(result.TimeSeries, model.TimeSeriesPoint{Bytes: s.Bytes, Ops: s.Ops})
		}
		for i := range result.TimeSeries {
			result.TimeSeries[i].Second = i
		}
	}
	if e.opts.TrackAllocations {
		v := int64(allocatedDuringMeasured)
		result.BytesAllocated = &v
		if v > 0 {
			result.Warnings = append(result.Warnings, "measured-window allocations detected; zero-allocation hot path invariant violated")
		}
	}
	return result
}

// OpenFlags computes the os.OpenFile flags a workload requires: O_RDWR
// only if it writes, O_DIRECT if it bypasses the page cache, and O_DSYNC
// if it asks for write-through (every write durably committed before the
// write call returns, independent of whether the cache is bypassed).
// Exported so the plan runner can open the same workload's delete-on-close
// handle with identical flags.
func OpenFlags(wl model.Workload) int {
	flags := os.O_RDONLY
	if wl.WritePercent > 0 {
		flags = os.O_RDWR
	}
	if wl.BypassCache {
		flags |= syscall.O_DIRECT
	}
	if wl.WriteThrough {
		flags |= syscall.O_DSYNC
	}
	return flags
}

func openFile(path string, flags int) (*os.File, error) {
	return os.OpenFile(path, flags, 0666)
}

func validateAlignment(wl model.Workload, logicalSectorSize int64) error {
	if !wl.BypassCache || logicalSectorSize <= 0 {
		return nil
	}
	if int64(wl.BlockSize)%logicalSectorSize != 0 {
		return bench.New(bench.InvalidWorkload, "block size is not a multiple of the logical sector size")
	}
	if wl.Region != nil && wl.Region.Offset%logicalSectorSize != 0 {
		return bench.New(bench.InvalidWorkload, "region offset is not a multiple of the logical sector size")
	}
	return nil
}

// newDecider returns a deterministic, allocation-free read/write
// decision function built from a precomputed 65,536-byte table of
// pseudo-random bytes drawn from seed. write_percent of 0 or 100 are
// special-cased to be exact, satisfying the invariant that read_ops or
// write_ops is exactly zero at those extremes (the general threshold
// formula alone admits a 1/256 rounding exception at 100%).
func newDecider(writePercent int, seed int64) func() bool {
	if writePercent <= 0 {
		return func() bool { return false }
	}
	if writePercent >= 100 {
		return func() bool { return true }
	}

	table := make([]byte, decisionTableSize)
	rand.New(rand.NewSource(seed)).Read(table)
	threshold := byte(math.Round(float64(writePercent) * 2.55))

	var idx uint32
	return func() bool {
		b := table[idx&(decisionTableSize-1)]
		idx++
		return b < threshold
	}
}

func allocatedBytes() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.TotalAlloc
}

func applyFlushPolicy(wl model.Workload, file *os.File, warnings *[]string) {
	if wl.WritePercent <= 0 {
		return
	}
	switch wl.FlushPolicy {
	case model.FlushNone:
		// Nothing. A write-through workload combined with FlushNone does
		// not get an implicit final flush; left explicit rather than assumed.
	case model.FlushAtEnd:
		_ = file.Sync()
	case model.FlushInterval:
		// The executor's run loop already flushes on each interval
		// boundary; this is the final flush for whatever partial
		// interval was still open when the trial ended.
		_ = file.Sync()
	case model.FlushEveryIO:
		*warnings = append(*warnings, "FlushEveryIO dominates measured latency; results reflect flush cost, not device throughput")
	}
}
