package pipeline

import (
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

// RecordWriter consumes accepted tagged records.  *bam.Writer
// satisfies it.
type RecordWriter interface {
	Write(*sam.Record) error
}

type chunkResult struct {
	recs  []*sam.Record
	stats Stats
	err   error
}

// Run streams synchronized pairs from src through a bounded pool of
// workers and writes accepted, tagged records to w in input order.
//
// The first Opts.ThresholdSample pairs are scored to fix the
// acceptance threshold, then every pair, the sampled prefix included,
// is processed in fixed-size chunks.  Each worker owns its own Tagger
// built from opts.  At most Opts.Threads chunks are in flight;
// results are consumed in chunk-submission order, so output order is
// independent of worker scheduling and of ChunkSize.  An error in any
// chunk, the source, or the writer stops the dispatcher and aborts
// the run once the in-flight chunks drain.
func Run(src PairIter, w RecordWriter, opts Opts) (Stats, error) {
	est := &Estimator{}
	scorer := NewTagger(opts)
	var prefix []Pair
	for est.Len() < opts.ThresholdSample {
		p, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Stats{}, err
		}
		prefix = append(prefix, p)
		est.Add(scorer.Score(p.BCSeq))
	}
	thresh := est.Threshold()
	log.Printf("score threshold: %.2f (%d records sampled)", thresh, est.Len())

	// next replays the sampled prefix before draining the rest of the
	// stream, so the prefix is re-evaluated against the threshold like
	// any other record.
	i := 0
	next := func() (Pair, error) {
		if i < len(prefix) {
			p := prefix[i]
			i++
			return p, nil
		}
		return src.Next()
	}

	// done is closed by the collector on the first error so the
	// dispatcher stops reading the source instead of pushing the rest
	// of the stream through doomed workers.
	done := make(chan struct{})
	results := make(chan chan chunkResult, opts.Threads)
	go func() {
		defer close(results)
		dispatch := func(chunk []Pair) {
			resCh := make(chan chunkResult, 1)
			results <- resCh // blocks while the in-flight window is full
			go func() {
				resCh <- processChunk(chunk, thresh, opts)
			}()
		}
		chunk := make([]Pair, 0, opts.ChunkSize)
		for {
			select {
			case <-done:
				return
			default:
			}
			p, err := next()
			if err == io.EOF {
				break
			}
			if err != nil {
				resCh := make(chan chunkResult, 1)
				resCh <- chunkResult{err: err}
				results <- resCh
				return
			}
			chunk = append(chunk, p)
			if len(chunk) == opts.ChunkSize {
				dispatch(chunk)
				chunk = make([]Pair, 0, opts.ChunkSize)
			}
		}
		if len(chunk) > 0 {
			dispatch(chunk)
		}
	}()

	var stats Stats
	e := errors.Once{}
	for resCh := range results {
		res := <-resCh
		if e.Err() != nil {
			continue // drain so the dispatcher can finish
		}
		if res.err != nil {
			e.Set(res.err)
			close(done)
			continue
		}
		stats = stats.Merge(res.stats)
		for _, rec := range res.recs {
			if err := w.Write(rec); err != nil {
				e.Set(errors.E(err, "writing tagged record", rec.Name))
				close(done)
				break
			}
		}
	}
	if err := e.Err(); err != nil {
		return stats, err
	}
	log.Printf("%d records processed, %d accepted (%d low score, %d decode failures)",
		stats.Records, stats.Accepted, stats.LowScore, stats.DecodeFailed)
	return stats, nil
}

// processChunk runs one worker over its chunk with a private Tagger.
func processChunk(chunk []Pair, thresh float64, opts Opts) chunkResult {
	tagger := NewTagger(opts)
	var res chunkResult
	for _, p := range chunk {
		res.stats.Records++
		score, ok := tagger.Process(p.BCSeq, p.Rec)
		if score < thresh {
			res.stats.LowScore++
			continue
		}
		if !ok {
			res.stats.DecodeFailed++
			continue
		}
		res.stats.Accepted++
		res.recs = append(res.recs, p.Rec)
	}
	return res
}
