// Package refdata loads registry sources (name and identifier tables) from
// reference files and auxiliary databases, handing them to the registry
// builder as plain pairs. Loaders skip blank names and non-positive ids;
// the builder handles dedup.
package refdata

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

// LoadCSV reads (name, id) pairs from the given columns of a CSV file with
// a header row.
func LoadCSV(path, nameCol, idCol string) (match.Source, error) {
	src := match.Source{Name: "csv:" + path}

	f, err := os.Open(path)
	if err != nil {
		return src, eris.Wrapf(err, "refdata: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return src, eris.Wrapf(err, "refdata: read header of %s", path)
	}
	nameIdx, idIdx := columnIndex(header, nameCol), columnIndex(header, idCol)
	if nameIdx < 0 || idIdx < 0 {
		return src, eris.Errorf("refdata: %s: missing column %q or %q", path, nameCol, idCol)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A parse error mid-file must not truncate a registry source.
			return src, eris.Wrapf(err, "refdata: read %s", path)
		}
		if nameIdx >= len(row) || idIdx >= len(row) {
			continue
		}
		if p, ok := toPair(row[nameIdx], row[idIdx]); ok {
			src.Pairs = append(src.Pairs, p)
		}
	}
	return src, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// toPair validates one raw row. Blank names and non-positive or unparseable
// ids are dropped here so the registry never sees them.
func toPair(name, id string) (match.Pair, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return match.Pair{}, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return match.Pair{}, false
	}
	return match.Pair{Name: name, CustomerID: n}, true
}
