package star

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePrefix(t *testing.T) {
	tests := []struct{ path, want string }{
		{"sample.fastq", "sample"},
		{"sample.fastq.gz", "sample"},
		{"/data/run1/sample_R2.fq.gz", "sample_R2"},
		{"noext", "noext"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, filePrefix(test.path), "filePrefix(%q)", test.path)
	}
}

func TestAlignReusesExistingOutput(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "star")
	defer cleanup()

	// A pre-existing STAR output BAM marks the step completed; Align
	// must return it without invoking the binary.
	starDir := filepath.Join(tmpDir, "STAR_files")
	require.NoError(t, os.MkdirAll(starDir, 0777))
	existing := filepath.Join(starDir, "sample_R2_Aligned.out.bam")
	require.NoError(t, os.WriteFile(existing, nil, 0644))

	got, err := Align("/nonexistent/genome", "/data/sample_R2.fastq.gz", tmpDir)
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	require.NoError(t, Cleanup(tmpDir))
	_, err = os.Stat(starDir)
	assert.True(t, os.IsNotExist(err))
}
