package utils

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/facette/natsort"
)

// CSV rows sort naturally by their first column: "plane_2" < "plane_10".
// Writing keeps the row order as given.
type CSV [][]string

func (data CSV) Less(i, j int) bool {
	return natsort.Compare(data[i][0], data[j][0])
}

func (data CSV) Len() int {
	return len(data)
}
func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

func WriteCSV(w io.Writer, data CSV, columns []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if err := writer.WriteAll(data); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func WriteAsCSV(data CSV, path, filename string, columns []string) (err error) {
	file, err := OpenFile(path, GetFilename(filename))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return WriteCSV(file, data, columns)
}
