package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// fastqPair is one R1/R2 file pair found in the input directory.
type fastqPair [2]string

func isFastq(name string) bool {
	name = strings.TrimSuffix(name, ".gz")
	return strings.HasSuffix(name, ".fastq") || strings.HasSuffix(name, ".fq")
}

// findPairedFastqs discovers R1/R2 FASTQ pairs in dir.  Files are
// paired by replacing the "_R1" marker in the name; unpaired files
// are an error since every barcode read needs an alignable mate.
func findPairedFastqs(dir string) ([]fastqPair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read fastq dir %s", dir)
	}
	names := map[string]bool{}
	for _, e := range entries {
		if !e.IsDir() && isFastq(e.Name()) {
			names[e.Name()] = true
		}
	}

	var pairs []fastqPair
	var r1s []string
	for n := range names {
		if strings.Contains(n, "_R1") {
			r1s = append(r1s, n)
		}
	}
	sort.Strings(r1s)
	for _, r1 := range r1s {
		r2 := strings.Replace(r1, "_R1", "_R2", 1)
		if !names[r2] {
			return nil, errors.Errorf("no R2 mate found for %s in %s", r1, dir)
		}
		pairs = append(pairs, fastqPair{filepath.Join(dir, r1), filepath.Join(dir, r2)})
	}
	if len(pairs) == 0 {
		return nil, errors.Errorf("no fastq pairs found in %s", dir)
	}
	return pairs, nil
}

// openFastq opens a possibly gzipped FASTQ file for reading.
func openFastq(ctx context.Context, path string) (io.Reader, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open fastq %s", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u, _ := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	closer := func() error { return in.Close(ctx) }
	return r, closer, nil
}
