package checksum

import (
	"bufio"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// FileFormat represents the format of a checksum file.
type FileFormat string

const (
	// FileFormatGNU is "<hash>  <filename>" or "<hash> *<filename>",
	// as written by sha512sum and published next to Elastic artifacts.
	FileFormatGNU FileFormat = "gnu"

	// FileFormatBSD is "SHA512 (<filename>) = <hash>".
	FileFormatBSD FileFormat = "bsd"

	// FileFormatBareHash is a single hash with no filename.
	FileFormatBareHash FileFormat = "bare_hash"

	FileFormatUnknown FileFormat = "unknown"
)

var bsdPattern = regexp.MustCompile(`^(SHA256|SHA512)\s+\((.+)\)\s+=\s+([a-fA-F0-9]+)$`)

// DetectFileFormat detects the format of a checksum file from its first
// non-empty line.
func DetectFileFormat(content []byte) FileFormat {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if bsdPattern.MatchString(line) {
			return FileFormatBSD
		}

		parts := strings.Fields(line)
		hash := parts[0]
		if DetectAlgorithm(hash) == "" || !isHexString(hash) {
			return FileFormatUnknown
		}
		if len(parts) >= 2 {
			return FileFormatGNU
		}
		if !hasMoreNonEmptyLines(scanner) {
			return FileFormatBareHash
		}
		return FileFormatUnknown
	}
	return FileFormatUnknown
}

func hasMoreNonEmptyLines(scanner *bufio.Scanner) bool {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			return true
		}
	}
	return false
}

// ParseFile extracts the hash for filename from a checksum file.
func ParseFile(content []byte, filename string) (Algorithm, Digest, error) {
	switch DetectFileFormat(content) {
	case FileFormatBSD:
		return parseBSD(content, filename)
	case FileFormatGNU:
		return parseGNU(content, filename)
	case FileFormatBareHash:
		return parseBareHash(content)
	default:
		return "", "", fmt.Errorf("unknown or unsupported checksum file format")
	}
}

func parseBSD(content []byte, filename string) (Algorithm, Digest, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		matches := bsdPattern.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if matches == nil {
			continue
		}
		if matches[2] == filename || path.Base(matches[2]) == filename {
			return Algorithm(strings.ToLower(matches[1])), Digest(strings.ToLower(matches[3])), nil
		}
	}
	return "", "", fmt.Errorf("checksum for %q not found in BSD checksums file", filename)
}

func parseGNU(content []byte, filename string) (Algorithm, Digest, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		hash, file := parts[0], strings.TrimPrefix(parts[1], "*")
		if file == filename || path.Base(file) == filename {
			algorithm := DetectAlgorithm(hash)
			if algorithm == "" {
				return "", "", fmt.Errorf("could not determine hash algorithm for %q", hash)
			}
			return algorithm, Digest(strings.ToLower(hash)), nil
		}
	}
	return "", "", fmt.Errorf("checksum for %q not found in GNU checksums file", filename)
}

func parseBareHash(content []byte) (Algorithm, Digest, error) {
	hash := strings.TrimSpace(string(content))
	algorithm := DetectAlgorithm(hash)
	if algorithm == "" {
		return "", "", fmt.Errorf("could not determine hash algorithm for bare hash %q", hash)
	}
	return algorithm, Digest(strings.ToLower(hash)), nil
}
