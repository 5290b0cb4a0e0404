package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Extensions lists the accepted filename extensions, for upload forms.
var Extensions = []string{".csv", ".xls", ".xlsx", ".json"}

// FormatOf maps a filename to its format by extension alone.
func FormatOf(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xls":
		return FormatXLS, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.NewUnsupportedFormatError(name, ext)
	}
}

// Load reads r as the format implied by name's extension.
// Parser errors are returned as they are; nothing is retried or guessed.
func Load(name string, r io.Reader) (*Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	var t *Table
	switch format {
	case FormatCSV:
		t, err = readCSV(r)
	case FormatXLS:
		t, err = readXLS(r)
	case FormatXLSX:
		t, err = readXLSX(r)
	case FormatJSON:
		t, err = readJSON(r)
	}
	if err != nil {
		return nil, err
	}

	rows, cols := t.Shape()
	log.GetLoggerWithName("dataset").Debug("dataset loaded",
		log.FilenameKey, name,
		log.FormatKey, string(format),
		log.RowsKey, rows,
		log.ColumnsKey, cols,
	)
	return t, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()
	return Load(filepath.Base(path), f)
}
