package pipeline

// Opts configures the tagging pipeline.  An Opts value is immutable
// once the run starts; workers derive their own aligner and decoder
// instances from it.
type Opts struct {
	// BarcodeWhitelist and SampleWhitelist are the valid cell and
	// sample barcodes.
	BarcodeWhitelist []string
	SampleWhitelist  []string

	// MaxBarcodeErrors is the edit tolerance for cell barcode decode.
	MaxBarcodeErrors int
	// MaxSampleErrors is the edit tolerance for sample barcode decode.
	MaxSampleErrors int
	// SampleRejectDelta is the ambiguity margin for sample barcode
	// decode: a best match whose runner-up is within this many edits is
	// rejected.
	SampleRejectDelta int

	// Threads is the worker parallelism and the bound on in-flight
	// chunks.
	Threads int
	// ChunkSize is the number of record pairs handed to one worker.
	ChunkSize int
	// ThresholdSample is the number of leading records scored to
	// estimate the acceptance threshold.
	ThresholdSample int
	// MaxSync bounds how far the synchronizer scans forward in the
	// barcode stream for the mate of one aligned record.
	MaxSync int
}

// DefaultOpts holds the default pipeline configuration.
var DefaultOpts = Opts{
	MaxBarcodeErrors:  2,
	MaxSampleErrors:   2,
	SampleRejectDelta: 1,
	Threads:           1,
	ChunkSize:         5000,
	ThresholdSample:   10000,
	MaxSync:           1000,
}
