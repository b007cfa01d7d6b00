package pipeline

// Stats represents high-level statistics for one tagging run.
type Stats struct {
	// Records counts the record pairs processed.
	Records int
	// LowScore is the # of records dropped for a layout score below
	// the threshold.
	LowScore int
	// DecodeFailed is the # of records at or above the threshold
	// dropped because a barcode or sample barcode failed to decode.
	DecodeFailed int
	// Accepted is the # of records tagged and written.
	Accepted int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Records += o.Records
	s.LowScore += o.LowScore
	s.DecodeFailed += o.DecodeFailed
	s.Accepted += o.Accepted
	return s
}
