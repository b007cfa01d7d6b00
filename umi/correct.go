// Package umi builds per-reference UMI correction mappings and
// rewrites raw UMI tags to their canonical values.
package umi

import (
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/hts/sam"

	"github.com/sdrtools/sdrcount/tags"
)

// A Correction maps, for one reference, each cell barcode to its raw
// UMI -> canonical UMI mapping.  Corrections are built once per
// reference and are read-only afterwards.
type Correction map[string]map[string]string

// Cluster builds the correction for one reference from observed raw
// UMI counts keyed by cell barcode.  Within each barcode, UMIs are
// visited in descending count order (ties lexicographic); a UMI
// within one edit of an already-chosen canonical UMI snaps to it,
// otherwise it becomes canonical itself.  The visit order is total,
// so the mapping is deterministic.
func Cluster(counts map[string]map[string]int) Correction {
	out := make(Correction, len(counts))
	for bc, umis := range counts {
		out[bc] = clusterOne(umis)
	}
	return out
}

func clusterOne(counts map[string]int) map[string]string {
	umis := make([]string, 0, len(counts))
	for u := range counts {
		umis = append(umis, u)
	}
	sort.Slice(umis, func(i, j int) bool {
		if counts[umis[i]] != counts[umis[j]] {
			return counts[umis[i]] > counts[umis[j]]
		}
		return umis[i] < umis[j]
	})

	mapping := make(map[string]string, len(umis))
	var canonical []string
	for _, u := range umis {
		snapped := u
		for _, c := range canonical {
			if matchr.Levenshtein(u, c) <= 1 {
				snapped = c
				break
			}
		}
		mapping[u] = snapped
		if snapped == u {
			canonical = append(canonical, u)
		}
	}
	return mapping
}

// Correct rewrites rec's UMI tag to the canonical value for its raw
// UMI.  A raw UMI absent from the mapping (possible only if rec was
// not part of the counting pass) is kept as its own canonical form.
func (c Correction) Correct(rec *sam.Record) {
	bc := tags.MustGet(rec, tags.CellBarcode)
	raw := tags.MustGet(rec, tags.RawUMI)
	corrected := raw
	if m := c[bc]; m != nil {
		if v, ok := m[raw]; ok {
			corrected = v
		}
	}
	tags.Set(rec, tags.UMI, corrected)
}
