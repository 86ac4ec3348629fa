// Package fileprep creates, sizes, and materializes the test file a
// workload runs against, and reports the volume's sector sizes.
package fileprep

import (
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/coreio-bench/diskbench/pkg/bench"
)

// chunkSize is the write granularity used when materializing a file
// without fast allocation.
const chunkSize = 4 << 20 // 4 MiB

// Options configures one call to Prepare.
type Options struct {
	Path          string
	FileSize      int64
	ReuseIfExists bool
	// FillPattern, if non-empty, is repeated to fill the materialized
	// file. A nil/empty pattern falls back to pseudo-random bytes.
	FillPattern []byte
	// Seed drives the pseudo-random default fill pattern.
	Seed int64
}

// PreparedFile is immutable once returned by Prepare.
type PreparedFile struct {
	Path                string
	ActualSize          int64
	LogicalSectorSize   int64
	PhysicalSectorSize  int64
	WasReused           bool
	UsedFastAllocation  bool
	Warnings            []string
}

// ProgressFunc receives materialization progress in [0, 1]. It may be nil.
type ProgressFunc func(fraction float64)

// Prepare creates (or reuses) the file described by opts. After Prepare
// returns without error, the file is exactly opts.FileSize bytes and
// every byte position up to that size is a valid, non-sparse I/O target.
func Prepare(opts Options, progress ProgressFunc) (*PreparedFile, error) {
	if opts.FileSize <= 0 {
		return nil, bench.New(bench.PrepareFailed, "file size must be positive")
	}

	logical, physical, err := querySectorSizes(opts.Path)
	if err != nil {
		return nil, bench.Wrap(bench.PrepareFailed, "query sector size", err)
	}

	pf := &PreparedFile{
		Path:               opts.Path,
		ActualSize:         opts.FileSize,
		LogicalSectorSize:  logical,
		PhysicalSectorSize: physical,
	}

	if opts.ReuseIfExists {
		if fi, err := os.Stat(opts.Path); err == nil && fi.Size() == opts.FileSize {
			pf.WasReused = true
			return pf, nil
		}
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, bench.Wrap(bench.PrepareFailed, "create file", err)
	}
	defer f.Close()

	if err := f.Truncate(opts.FileSize); err != nil {
		return nil, bench.Wrap(bench.PrepareFailed, "set file length", err)
	}

	if err := unix.Fallocate(int(f.Fd()), 0, 0, opts.FileSize); err != nil {
		pf.Warnings = append(pf.Warnings, "fast allocation unavailable: "+err.Error())
		if err := materialize(f, opts, progress); err != nil {
			return nil, bench.Wrap(bench.PrepareFailed, "materialize file", err)
		}
	} else {
		pf.UsedFastAllocation = true
	}

	return pf, nil
}

func materialize(f *os.File, opts Options, progress ProgressFunc) error {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)

	pattern := opts.FillPattern
	if len(pattern) == 0 {
		pattern = make([]byte, chunkSize)
		rand.New(rand.NewSource(opts.Seed)).Read(pattern)
	}

	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = pattern[i%len(pattern)]
	}

	var written int64
	for written < opts.FileSize {
		n := int64(chunkSize)
		if remaining := opts.FileSize - written; remaining < n {
			n = remaining
		}
		if _, err := f.WriteAt(buf[:n], written); err != nil {
			return err
		}
		written += n
		if progress != nil {
			progress(float64(written) / float64(opts.FileSize))
		}
	}
	return nil
}

func querySectorSizes(path string) (logical, physical int64, err error) {
	dir := filepath.Dir(path)
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, 0, err
	}
	// Statfs does not distinguish logical from physical sector size for a
	// regular file's underlying block device; both are reported as the
	// filesystem's fundamental block size, which is the best a
	// file-backed (not raw block device) preparer can determine without
	// an external device-identity provider.
	logical = int64(stat.Bsize)
	physical = logical
	return logical, physical, nil
}
