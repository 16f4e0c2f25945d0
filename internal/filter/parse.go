package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads exclude patterns from a file, one list per line.
// Format:
//
//	pattern        → exclude
//	a,b,c          → three patterns
//	# comment      → skip
//	blank line     → skip
func LoadFile(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	var patterns []Pattern
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed, err := ParsePatternList(line)
		if err != nil {
			return nil, fmt.Errorf("exclude file %s line %d: %w", path, lineNum, err)
		}
		patterns = append(patterns, parsed...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read exclude file %s: %w", path, err)
	}
	return patterns, nil
}
