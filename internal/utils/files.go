package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadFloatRows reads whitespace separated numeric rows. Every row must have
// between minColumns and maxColumns fields. Empty lines and lines starting
// with '#' are skipped.
func ReadFloatRows(r io.Reader, minColumns, maxColumns int) ([][]float64, error) {
	var result [][]float64

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(strings.ReplaceAll(line, ",", " "))

		if len(parts) < minColumns || len(parts) > maxColumns {
			return nil, fmt.Errorf("line %d: invalid format %q - expected %d to %d numbers, got %d", lineNumber, line, minColumns, maxColumns, len(parts))
		}

		row := make([]float64, len(parts))
		for i, part := range parts {
			value, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: error parsing float %q: %w", lineNumber, part, err)
			}
			row[i] = value
		}
		result = append(result, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}

	return result, nil
}

func GetFilename(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OpenFile creates outputPath/name.csv, creating outputPath when needed.
func OpenFile(outputPath, name string) (*os.File, error) {
	if outputPath != "" && outputPath != "." {
		if err := os.MkdirAll(outputPath, 0750); err != nil {
			return nil, err
		}
	}
	return os.Create(filepath.Join(outputPath, name+".csv"))
}
