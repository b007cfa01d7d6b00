package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestIsFastq(t *testing.T) {
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"s1_R1.fastq", true},
		{"s1_R1.fastq.gz", true},
		{"s1_R2.fq", true},
		{"s1_R2.fq.gz", true},
		{"s1_R1.bam", false},
		{"s1_R1.fastq.bak", false},
		{"readme.txt", false},
	} {
		expect.EQ(t, isFastq(tc.name), tc.want, tc.name)
	}
}

func TestFindPairedFastqs(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "fastqs")
	defer cleanup()
	touch := func(name string) {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0666))
	}
	touch("b_R1.fastq.gz")
	touch("b_R2.fastq.gz")
	touch("a_R1.fq")
	touch("a_R2.fq")
	touch("notes.txt")

	pairs, err := findPairedFastqs(dir)
	assert.NoError(t, err)
	assert.EQ(t, len(pairs), 2)
	expect.EQ(t, pairs[0], fastqPair{filepath.Join(dir, "a_R1.fq"), filepath.Join(dir, "a_R2.fq")})
	expect.EQ(t, pairs[1], fastqPair{filepath.Join(dir, "b_R1.fastq.gz"), filepath.Join(dir, "b_R2.fastq.gz")})
}

func TestFindPairedFastqsMissingMate(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "fastqs")
	defer cleanup()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a_R1.fastq"), nil, 0666))
	_, err := findPairedFastqs(dir)
	expect.HasSubstr(t, err.Error(), "no R2 mate")
}

func TestFindPairedFastqsEmpty(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "fastqs")
	defer cleanup()
	_, err := findPairedFastqs(dir)
	expect.HasSubstr(t, err.Error(), "no fastq pairs")
}
