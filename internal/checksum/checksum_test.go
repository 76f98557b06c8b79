package checksum

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		value         string
		wantAlgorithm Algorithm
		wantHash      Digest
		wantErr       bool
	}{
		{name: "sha256", value: "sha256:abc123", wantAlgorithm: AlgorithmSHA256, wantHash: "abc123"},
		{name: "sha512 uppercase", value: "sha512:DEF456", wantAlgorithm: AlgorithmSHA512, wantHash: "def456"},
		{name: "missing algorithm", value: "abc123", wantErr: true},
		{name: "unsupported algorithm", value: "md5:abc123", wantErr: true},
		{name: "not hex", value: "sha256:xyz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			alg, hash, err := Parse(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlgorithm, alg)
			assert.Equal(t, tt.wantHash, hash)
		})
	}
}

func TestExtractHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Digest(""), ExtractHash(""))
	assert.Equal(t, Digest("abc123def456"), ExtractHash("sha256:abc123def456"))
	assert.Equal(t, Digest(""), ExtractHash("invalidformat"))
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	content := []byte("hello world")
	filePath := filepath.Join(t.TempDir(), "testfile")
	require.NoError(t, os.WriteFile(filePath, content, 0o644))

	got, err := Calculate(filePath, AlgorithmSHA256)
	require.NoError(t, err)
	assert.Equal(t, Digest(fmt.Sprintf("%x", sha256.Sum256(content))), got)

	got, err = Calculate(filePath, AlgorithmSHA512)
	require.NoError(t, err)
	assert.Equal(t, Digest(fmt.Sprintf("%x", sha512.Sum512(content))), got)

	_, err = Calculate(filePath, "md5")
	assert.Error(t, err)

	_, err = Calculate(filepath.Join(t.TempDir(), "missing"), AlgorithmSHA256)
	assert.Error(t, err)
}

func TestCalculateFromReader(t *testing.T) {
	t.Parallel()

	got, err := CalculateFromReader(strings.NewReader("hello world"), AlgorithmSHA256)
	require.NoError(t, err)
	assert.Equal(t, Digest("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"), got)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	content := []byte("filebeat archive")
	filePath := filepath.Join(t.TempDir(), "filebeat.zip")
	require.NoError(t, os.WriteFile(filePath, content, 0o644))
	want := Digest(fmt.Sprintf("%x", sha512.Sum512(content)))

	require.NoError(t, Verify(filePath, AlgorithmSHA512, want))
	require.NoError(t, Verify(filePath, AlgorithmSHA512, Digest(strings.ToUpper(string(want)))))

	err := Verify(filePath, AlgorithmSHA512, "00")
	var csErr *fbErrors.ChecksumError
	require.True(t, errors.As(err, &csErr))
	assert.Equal(t, filePath, csErr.File)
	assert.Equal(t, string(want), csErr.Got)
}

func TestDetectAlgorithm(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AlgorithmSHA256, DetectAlgorithm(strings.Repeat("a", 64)))
	assert.Equal(t, AlgorithmSHA512, DetectAlgorithm(strings.Repeat("a", 128)))
	assert.Equal(t, Algorithm(""), DetectAlgorithm("abc"))
}
