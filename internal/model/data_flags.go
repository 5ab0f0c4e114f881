package model

import (
	"flag"
	"path/filepath"
	"strings"
)

type DataItem struct {
	saveFlag *bool
	matches  func(outputName string) bool
}

// DataFlags selects which outputs are written to disk.
type DataFlags struct {
	all        *bool
	items      map[string]DataItem
	outputPath string
}

func isSummed(name string) bool {
	return strings.HasSuffix(name, "_Summed")
}

func NewDataFlags(fs *flag.FlagSet) DataFlags {
	return DataFlags{
		all: fs.Bool("all", false, "save every output"),
		items: map[string]DataItem{
			"Single scattering": {
				saveFlag: fs.Bool("s1", true, "save single scattering"),
				matches:  func(name string) bool { return name == "Scatter_1" },
			},
			"Single scattering without absorption": {
				saveFlag: fs.Bool("noabs", true, "save single scattering without absorption"),
				matches:  func(name string) bool { return strings.HasSuffix(name, "_NoAbs") },
			},
			"Scatter orders": {
				saveFlag: fs.Bool("sn", false, "save every scatter order above one"),
				matches: func(name string) bool {
					return strings.HasPrefix(name, "Scatter_") && name != "Scatter_1" &&
						!strings.HasSuffix(name, "_NoAbs") && !isSummed(name)
				},
			},
			"Multiple scattering": {
				saveFlag: fs.Bool("summed", true, "save the sum of scatter orders above one"),
				matches:  isSummed,
			},
		},
	}
}

// Selected reports whether the output of that name should be saved.
func (df *DataFlags) Selected(outputName string) bool {
	if *df.all {
		return true
	}
	for _, item := range df.items {
		if item.matches(outputName) && *item.saveFlag {
			return true
		}
	}
	return false
}

func (df *DataFlags) SetOutputPath(path string) {
	df.outputPath = filepath.Clean(path)
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}
