package main

// sdrcount extracts split-design barcodes and UMIs from gDNA
// sequencing runs.
//
// The run has four stages, each resumable from its output:
//
//   1. STAR-align the non-barcode mate of every FASTQ pair, then tag
//      each aligned record with the barcodes decoded from its barcode
//      mate, producing gDNA_with_bc.bam.
//   2. Coordinate-sort and index the tagged BAM.
//   3. Correct raw UMIs per reference and write the canonical UMI
//      tag, producing gDNA_with_bc_umi.sorted.bam.
//   4. Assemble sparse read and UMI count matrices.
//
// Example:
//
//    sdrcount -fastq-dir runs/s1 -output-dir out/s1 -genome-dir hg38_star \
//        -barcode-whitelist bc.txt -sample-barcode-whitelist sbc.txt -threads 8

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio/encoding/fastq"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"

	"github.com/sdrtools/sdrcount/barcode"
	"github.com/sdrtools/sdrcount/count"
	"github.com/sdrtools/sdrcount/pipeline"
	"github.com/sdrtools/sdrcount/star"
)

type mainFlags struct {
	fastqDir        string
	outputDir       string
	genomeDir       string
	bcWhitelist     string
	sampleWhitelist string
}

// detectSample is the number of reads scored per side to decide which
// mate carries the barcodes.
const detectSample = 1000

func main() {
	flags := mainFlags{}
	opts := pipeline.DefaultOpts
	flag.StringVar(&flags.fastqDir, "fastq-dir", "", "Directory containing paired FASTQ files.")
	flag.StringVar(&flags.outputDir, "output-dir", "", "Output directory.")
	flag.StringVar(&flags.genomeDir, "genome-dir", "", "STAR genome index directory.")
	flag.StringVar(&flags.bcWhitelist, "barcode-whitelist", "", "Cell barcode whitelist, one barcode per line.")
	flag.StringVar(&flags.sampleWhitelist, "sample-barcode-whitelist", "", "Sample barcode whitelist, one barcode per line.")
	flag.IntVar(&opts.MaxBarcodeErrors, "max-bc-errors", pipeline.DefaultOpts.MaxBarcodeErrors,
		"Max edits allowed when decoding a cell barcode.")
	flag.IntVar(&opts.MaxSampleErrors, "max-sbc-errors", pipeline.DefaultOpts.MaxSampleErrors,
		"Max edits allowed when decoding a sample barcode.")
	flag.IntVar(&opts.SampleRejectDelta, "sbc-reject-delta", pipeline.DefaultOpts.SampleRejectDelta,
		"Sample barcode decodes whose runner-up is within this many edits of the best match are rejected as ambiguous.")
	flag.IntVar(&opts.Threads, "threads", pipeline.DefaultOpts.Threads, "Worker parallelism.")
	flag.IntVar(&opts.ChunkSize, "chunk-size", pipeline.DefaultOpts.ChunkSize, "Record pairs per worker chunk.")
	flag.IntVar(&opts.ThresholdSample, "threshold-sample", pipeline.DefaultOpts.ThresholdSample,
		"Leading records scored to estimate the acceptance threshold.")
	flag.IntVar(&opts.MaxSync, "max-sync", pipeline.DefaultOpts.MaxSync,
		"Max forward scan in the barcode stream when pairing one aligned record.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	for _, req := range []struct{ name, val string }{
		{"fastq-dir", flags.fastqDir},
		{"output-dir", flags.outputDir},
		{"genome-dir", flags.genomeDir},
		{"barcode-whitelist", flags.bcWhitelist},
		{"sample-barcode-whitelist", flags.sampleWhitelist},
	} {
		if req.val == "" {
			log.Fatalf("-%s is required", req.name)
		}
	}
	run(ctx, flags, opts)
	log.Printf("All done")
}

func run(ctx context.Context, flags mainFlags, opts pipeline.Opts) {
	var err error
	if opts.BarcodeWhitelist, err = barcode.LoadWhitelist(flags.bcWhitelist); err != nil {
		log.Fatal(err)
	}
	if opts.SampleWhitelist, err = barcode.LoadWhitelist(flags.sampleWhitelist); err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(flags.outputDir, 0777); err != nil {
		log.Fatal(err)
	}

	taggedPath := filepath.Join(flags.outputDir, "gDNA_with_bc.bam")
	sortedPath := filepath.Join(flags.outputDir, "gDNA_with_bc.sorted.bam")
	umiPath := filepath.Join(flags.outputDir, "gDNA_with_bc_umi.sorted.bam")

	completed := 0
	if _, err := os.Stat(sortedPath); err == nil {
		log.Printf("sorted tagged BAM found, skipping ahead")
		completed = 2
	} else if _, err := os.Stat(taggedPath); err == nil {
		log.Printf("tagged BAM found, skipping ahead")
		completed = 1
	}

	if completed < 1 {
		tagStage(ctx, flags, opts, taggedPath)
	}
	if completed < 2 {
		log.Printf("sorting and indexing %s", taggedPath)
		if err := star.SortIndex(taggedPath, sortedPath, opts.Threads); err != nil {
			log.Fatal(err)
		}
		if err := os.Remove(taggedPath); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("correcting UMIs")
	res, err := count.CorrectAndCount(sortedPath, umiPath, opts.Threads)
	if err != nil {
		log.Fatal(err)
	}
	if err := star.Index(umiPath); err != nil {
		log.Fatal(err)
	}
	if err := res.WriteMatrices(flags.outputDir); err != nil {
		log.Fatal(err)
	}
}

// tagStage aligns every mate FASTQ with STAR and writes the merged
// tagged BAM.
func tagStage(ctx context.Context, flags mainFlags, opts pipeline.Opts, taggedPath string) {
	pairs, err := findPairedFastqs(flags.fastqDir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("files to process:")
	for _, p := range pairs {
		log.Printf("  %s", p[0])
		log.Printf("  %s", p[1])
	}

	bcIdx, err := detectBarcodeRead(ctx, pairs[0], opts)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("detected barcodes in read%d files", bcIdx+1)

	type job struct {
		bcFastq string
		bamPath string
	}
	var jobs []job
	for _, p := range pairs {
		bamPath, err := star.Align(flags.genomeDir, p[1-bcIdx], flags.outputDir)
		if err != nil {
			log.Fatal(err)
		}
		jobs = append(jobs, job{bcFastq: p[bcIdx], bamPath: bamPath})
	}

	// Template the merged output on the first alignment's header; all
	// pairs share the genome index, so the headers agree.
	header, err := readHeader(jobs[0].bamPath)
	if err != nil {
		log.Fatal(err)
	}
	out, err := os.Create(taggedPath)
	if err != nil {
		log.Fatal(err)
	}
	bw, err := bam.NewWriter(out, header, opts.Threads)
	if err != nil {
		log.Fatal(err)
	}

	var stats pipeline.Stats
	for _, j := range jobs {
		log.Printf("processing %s with %s", j.bcFastq, j.bamPath)
		s, err := tagOne(ctx, j.bcFastq, j.bamPath, bw, opts)
		if err != nil {
			log.Fatal(err)
		}
		stats = stats.Merge(s)
	}
	if err := bw.Close(); err != nil {
		log.Fatal(err)
	}
	if err := out.Close(); err != nil {
		log.Fatal(err)
	}
	if err := star.Cleanup(flags.outputDir); err != nil {
		log.Fatal(err)
	}
	log.Printf("tagging done: %d records, %d accepted", stats.Records, stats.Accepted)
}

// tagOne runs the chunked pipeline for one barcode-fastq/BAM pair.
func tagOne(ctx context.Context, bcFastq, bamPath string, bw *bam.Writer, opts pipeline.Opts) (pipeline.Stats, error) {
	bcr, bcClose, err := openFastq(ctx, bcFastq)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer bcClose() // nolint: errcheck
	in, err := os.Open(bamPath)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer in.Close() // nolint: errcheck
	br, err := bam.NewReader(in, 1)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer br.Close() // nolint: errcheck

	src := pipeline.NewPairSource(bcr, br, opts.MaxSync)
	return pipeline.Run(src, bw, opts)
}

func readHeader(path string) (*sam.Header, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close() // nolint: errcheck
	br, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, err
	}
	defer br.Close() // nolint: errcheck
	return br.Header(), nil
}

// detectBarcodeRead scores the leading reads of both sides of one
// FASTQ pair against the barcode layout; the side with the higher
// mean score carries the barcodes.
func detectBarcodeRead(ctx context.Context, pair fastqPair, opts pipeline.Opts) (int, error) {
	tg := pipeline.NewTagger(opts)
	var mean [2]float64
	for i, path := range pair {
		r, closer, err := openFastq(ctx, path)
		if err != nil {
			return 0, err
		}
		sc := fastq.NewScanner(r, fastq.Seq)
		var read fastq.Read
		var sum float64
		n := 0
		for n < detectSample && sc.Scan(&read) {
			sum += tg.Score(read.Seq)
			n++
		}
		if err := closer(); err != nil {
			return 0, err
		}
		if err := sc.Err(); err != nil {
			return 0, err
		}
		if n > 0 {
			mean[i] = sum / float64(n)
		}
	}
	if mean[1] > mean[0] {
		return 1, nil
	}
	return 0, nil
}
