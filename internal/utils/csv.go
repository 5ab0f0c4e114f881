package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/facette/natsort"
)

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

// WriteAsCSV writes the header row followed by data ordered naturally by its first column.
func WriteAsCSV(w io.Writer, data CSV, columns []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("while writing csv header: %w", err)
	}
	sort.Stable(data)
	if err := cw.WriteAll(data); err != nil {
		return fmt.Errorf("while writing csv rows: %w", err)
	}
	return nil
}
