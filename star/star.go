// Package star invokes the external STAR aligner and samtools as
// black boxes.  Both are required on PATH; their own diagnostics are
// surfaced on failure.
package star

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// filePrefix returns the file name without directory, .gz suffix, or
// extension.
func filePrefix(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Align runs STAR on fastqPath against the genome index in genomeDir
// and returns the path of the unsorted output BAM.  STAR is run
// single-threaded so the output record order matches the input FASTQ,
// and with unique-best-mapping filtering.  An existing output BAM is
// reused, keeping reruns cheap.
func Align(genomeDir, fastqPath, outputDir string) (string, error) {
	starDir := filepath.Join(outputDir, "STAR_files")
	if err := os.MkdirAll(starDir, 0777); err != nil {
		return "", errors.Wrap(err, "create STAR output dir")
	}
	outPrefix := filepath.Join(starDir, filePrefix(fastqPath)+"_")
	outPath := outPrefix + "Aligned.out.bam"
	if _, err := os.Stat(outPath); err == nil {
		log.Printf("STAR results found for %s, skipping alignment", fastqPath)
		return outPath, nil
	}

	args := []string{
		"--runThreadN", "1", // keep record order matching the fastq
		"--genomeDir", genomeDir,
		"--readFilesIn", fastqPath,
		"--outFileNamePrefix", outPrefix,
		"--outFilterMultimapNmax", "1",
		"--outSAMtype", "BAM", "Unsorted",
	}
	if strings.HasSuffix(fastqPath, ".gz") {
		args = append(args, "--readFilesCommand", "zcat")
	}
	if err := run("STAR", args...); err != nil {
		return "", err
	}
	return outPath, nil
}

// Cleanup removes the intermediate STAR output directory.
func Cleanup(outputDir string) error {
	return os.RemoveAll(filepath.Join(outputDir, "STAR_files"))
}

// SortIndex coordinate-sorts inPath into outPath with samtools and
// indexes the result.
func SortIndex(inPath, outPath string, threads int) error {
	if err := run("samtools", "sort", "-@", fmt.Sprint(threads), "-o", outPath, inPath); err != nil {
		return err
	}
	return run("samtools", "index", outPath)
}

// Index builds a .bai index for an already sorted BAM.
func Index(path string) error {
	return run("samtools", "index", path)
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	log.Printf("running %s %s", name, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s %s", name, strings.Join(args, " "))
	}
	return nil
}
