package model

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wildstyl3r/discus/internal/utils"
)

const maxOpenFiles = 4

type DataExtractor struct {
	result  *Result
	makeDir bool
}

func NewDataExtractor(m *Model, result *Result) *DataExtractor {
	return &DataExtractor{result: result, makeDir: m.Parameters.MakeDir}
}

// table lays out one output as a row per spectrum, keyed by spectrum number.
func (de *DataExtractor) table(output *ScatterOrderResult) (columns []string, rows utils.CSV) {
	ws := de.result.Workspace
	columns = []string{"spectrum"}
	if len(ws.Spectra) > 0 {
		for _, wavelength := range ws.Spectra[0].Wavelengths {
			columns = append(columns, strconv.FormatFloat(wavelength, 'g', -1, 64)+" (A)")
		}
	}
	rows = make(utils.CSV, len(ws.Spectra))
	for s, spectrum := range ws.Spectra {
		row := []string{strconv.Itoa(spectrum.Number)}
		for _, value := range output.Values[s] {
			row = append(row, strconv.FormatFloat(value, 'g', -1, 64))
		}
		rows[s] = row
	}
	return columns, rows
}

func (de *DataExtractor) save(runName, outputPath string, output *ScatterOrderResult) (err error) {
	file, err := utils.OpenFile(de.makeDir, outputPath, output.Name, runName)
	if err != nil {
		return fmt.Errorf("while opening file for %s: %w", output.Name, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("while closing %s: %w", file.Name(), cerr)
		}
	}()
	columns, rows := de.table(output)
	if err := utils.WriteAsCSV(file, rows, columns); err != nil {
		return fmt.Errorf("while writing %s: %w", output.Name, err)
	}
	if glog.V(1) {
		var values []float64
		for _, row := range output.Values {
			values = append(values, row...)
		}
		mean, variance := utils.MeanAndVariance(values, true)
		glog.Infof("%s saved to %s: mean %g, variance %g", output.Name, file.Name(), mean, variance)
	}
	return nil
}

// Save writes every selected output of the run as CSV.
func (de *DataExtractor) Save(ctx context.Context, runName string, df DataFlags) error {
	eg, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(maxOpenFiles)
	for _, output := range de.result.All() {
		if !df.Selected(output.Name) {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("while acquiring output file semaphore: %w", err)
		}
		eg.Go(func() error {
			defer sem.Release(1)
			return de.save(runName, df.GetOutputPath(), output)
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("while saving outputs of %s: %w", runName, err)
	}
	return nil
}
