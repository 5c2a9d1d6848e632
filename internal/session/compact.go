package session

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// CompactResult summarizes one compacted log file.
type CompactResult struct {
	Path       string
	SizeBefore int64
	SizeAfter  int64
}

// CompactFile compresses a .jsonl session log to .jsonl.zst and removes
// the original. Already-compacted files are rejected.
func CompactFile(path string) (CompactResult, error) {
	if strings.HasSuffix(path, ".zst") {
		return CompactResult{}, fmt.Errorf("%s is already compacted", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return CompactResult{}, fmt.Errorf("stat session log: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return CompactResult{}, fmt.Errorf("opening session log: %w", err)
	}
	defer src.Close() //nolint:errcheck

	outPath := path + ".zst"
	dst, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return CompactResult{}, fmt.Errorf("creating compacted log: %w", err)
	}

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		dst.Close()        //nolint:errcheck
		os.Remove(outPath) //nolint:errcheck
		return CompactResult{}, fmt.Errorf("creating zstd writer: %w", err)
	}

	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()        //nolint:errcheck
		dst.Close()        //nolint:errcheck
		os.Remove(outPath) //nolint:errcheck
		return CompactResult{}, fmt.Errorf("compacting session log: %w", err)
	}
	if err := enc.Close(); err != nil {
		dst.Close()        //nolint:errcheck
		os.Remove(outPath) //nolint:errcheck
		return CompactResult{}, fmt.Errorf("flushing compacted log: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(outPath) //nolint:errcheck
		return CompactResult{}, fmt.Errorf("closing compacted log: %w", err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		return CompactResult{}, fmt.Errorf("stat compacted log: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return CompactResult{}, fmt.Errorf("removing original log: %w", err)
	}

	return CompactResult{
		Path:       outPath,
		SizeBefore: info.Size(),
		SizeAfter:  outInfo.Size(),
	}, nil
}

// CompactDir compacts every plain session log in dir older than minAge.
// Logs still being written stay untouched as long as minAge is positive.
func CompactDir(dir string, minAge time.Duration) ([]CompactResult, error) {
	files, err := List(dir)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-minAge)
	var results []CompactResult
	for _, f := range files {
		if f.Compacted {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		res, err := CompactFile(f.Path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
