package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Merge concatenates per-route stores into one combined file, in input
// order. The header is written once; each input's own header is dropped.
// Missing inputs are skipped with a warning so one absent route does not
// sink the merge. Returns the number of data rows written.
func Merge(outputPath string, inputPaths []string) (int, error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", outputPath, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	if err := writer.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	total := 0
	for _, path := range inputPaths {
		n, err := appendFile(writer, path)
		if os.IsNotExist(err) {
			slog.Warn("merge input missing, skipping", slog.String("file", path))
			continue
		}
		if err != nil {
			return total, fmt.Errorf("merge %q: %w", path, err)
		}
		total += n
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return total, fmt.Errorf("flush %q: %w", outputPath, err)
	}
	return total, nil
}

func appendFile(writer *csv.Writer, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows := 0
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if first {
			first = false
			continue
		}
		if err := writer.Write(record); err != nil {
			return rows, err
		}
		rows++
	}
}
