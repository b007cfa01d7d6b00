package barcode

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
)

// A Decoder maps an extracted fragment to the nearest whitelist entry
// within a maximum edit distance, or reports a failed decode.
// Decoders are immutable after construction and cheap enough to
// rebuild per worker.
type Decoder struct {
	whitelist []string
	maxErrors int
}

// NewDecoder returns a decoder over the given whitelist accepting up
// to maxErrors edits.
func NewDecoder(whitelist []string, maxErrors int) *Decoder {
	return &Decoder{whitelist: whitelist, maxErrors: maxErrors}
}

// Decode returns the whitelist entry nearest to fragment, or ok=false
// if no entry is within the decoder's error bound.  Ties go to the
// earlier whitelist entry.
//
// readTail is the sequence following the fragment in the read and
// expectTail the sequence expected to follow the whitelist entry.  An
// indel inside the fragment shifts the fixed extraction window, so
// the window's trailing bases belong to the tails rather than the
// barcode; supplying the tails lets those bases be charged correctly
// instead of as spurious edits.  Pass empty tails when the following
// sequence is unpredictable.
func (d *Decoder) Decode(fragment, readTail, expectTail string) (entry string, ok bool) {
	best, bestDist, _ := d.nearest(fragment, readTail, expectTail)
	if best < 0 || bestDist > d.maxErrors {
		return "", false
	}
	return d.whitelist[best], true
}

// nearest returns the index, distance, and runner-up distance of the
// whitelist entry closest to fragment.  Distances are unclamped; the
// caller applies the error bound.
func (d *Decoder) nearest(fragment, readTail, expectTail string) (best, bestDist, secondDist int) {
	best = -1
	bestDist = math.MaxInt
	secondDist = math.MaxInt
	for i, w := range d.whitelist {
		dist := fragmentDistance(fragment, w, readTail, expectTail)
		switch {
		case dist < bestDist:
			best, secondDist, bestDist = i, bestDist, dist
		case dist < secondDist:
			secondDist = dist
		}
	}
	return best, bestDist, secondDist
}

// fragmentDistance is the Levenshtein distance between an extracted
// fragment and a whitelist entry, repairing window shifts against the
// tails.  Fragments clamped short by a truncated read fall back to a
// plain unequal-length distance.
func fragmentDistance(fragment, entry, readTail, expectTail string) int {
	if len(fragment) == len(entry) {
		return Distance(fragment, entry, readTail, expectTail)
	}
	return matchr.Levenshtein(fragment, entry)
}

// A SampleDecoder decodes sample barcodes.  On top of the plain
// decoder's error bound it enforces a rejection margin: if the
// second-closest whitelist entry is within RejectDelta edits of the
// best match, the call is ambiguous and the decode fails even though
// an in-bound match exists.  Sample barcodes gate demultiplexing, so
// a wrong call costs more than a dropped read.
type SampleDecoder struct {
	Decoder
	rejectDelta int
}

// NewSampleDecoder returns a sample barcode decoder with the given
// error bound and ambiguity margin.
func NewSampleDecoder(whitelist []string, maxErrors, rejectDelta int) *SampleDecoder {
	return &SampleDecoder{
		Decoder:     Decoder{whitelist: whitelist, maxErrors: maxErrors},
		rejectDelta: rejectDelta,
	}
}

// Decode returns the whitelist entry nearest to fragment, or ok=false
// if no entry is within the error bound or the best match is
// ambiguous.  The margin is measured against the true runner-up
// distance, so a decode that spends the whole error budget still
// succeeds when the runner-up is far away.  Sample barcodes are
// followed by the random UMI, so no tails are available.
func (d *SampleDecoder) Decode(fragment string) (entry string, ok bool) {
	best, bestDist, secondDist := d.nearest(fragment, "", "")
	if best < 0 || bestDist > d.maxErrors {
		return "", false
	}
	if secondDist-bestDist <= d.rejectDelta {
		return "", false
	}
	return d.whitelist[best], true
}

// LoadWhitelist reads a whitelist file, one barcode per line,
// transparently decompressing gzipped files.  Barcodes are uppercased;
// blank lines are skipped.
func LoadWhitelist(path string) ([]string, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open whitelist %s", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	var r io.Reader = in.Reader(ctx)
	if u, _ := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	var whitelist []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		whitelist = append(whitelist, strings.ToUpper(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read whitelist %s", path)
	}
	if len(whitelist) == 0 {
		return nil, errors.Errorf("whitelist %s is empty", path)
	}
	return whitelist, nil
}
