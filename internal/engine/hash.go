package engine

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

const hashBufferSize = 128 * 1024

// ContentHash streams path through xxHash64. Resume uses it to compare a
// source against a destination whose mtime is older.
func ContentHash(path string) (uint64, error) {
	h := xxhash.New()
	if err := hashFile(path, h); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Checksum returns the hex BLAKE3 digest of path for post-copy verification.
func Checksum(path string) (string, error) {
	h := blake3.New()
	if err := hashFile(path, h); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(path string, h hash.Hash) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	return nil
}
