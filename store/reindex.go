package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Reindex rewrites the Bus ID column of a store so data rows number 1..n
// in file order. Sentinel rows keep their literal "error" marker; anything
// else would break the previously-failed check. When outputPath is empty
// the file is rewritten in place via a temp file and rename.
func Reindex(path, outputPath string) (int, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	inPlace := outputPath == ""
	if inPlace {
		outputPath = path
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".reindex-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	writer := csv.NewWriter(tmp)
	next := 1
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %q: %w", path, err)
		}
		if !first && len(record) > 0 && record[0] != FailureSentinel {
			record[0] = strconv.Itoa(next)
			next++
		}
		first = false
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("write temp: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flush temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return 0, fmt.Errorf("replace %q: %w", outputPath, err)
	}
	return next - 1, nil
}
