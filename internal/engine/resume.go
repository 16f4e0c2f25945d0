package engine

import (
	"fmt"
	"os"
)

// ShouldSkip reports whether dst already holds a complete copy of src.
// A missing destination or a size mismatch never skips. If src is not newer
// than dst the copy is assumed complete; otherwise both files are hashed.
func ShouldSkip(src, dst string) (bool, error) {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false, nil
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", src, err)
	}
	if !dstInfo.Mode().IsRegular() || dstInfo.Size() != srcInfo.Size() {
		return false, nil
	}

	// Equal mtimes count as up to date.
	if !srcInfo.ModTime().After(dstInfo.ModTime()) {
		return true, nil
	}

	srcSum, err := ContentHash(src)
	if err != nil {
		return false, err
	}
	dstSum, err := ContentHash(dst)
	if err != nil {
		return false, err
	}
	return srcSum == dstSum, nil
}
