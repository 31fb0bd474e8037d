package refdata

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

// LoadXLSX reads (name, id) pairs from the given columns of an XLSX sheet
// with a header row. An empty sheet name selects the first sheet.
func LoadXLSX(path, sheetName, nameCol, idCol string) (match.Source, error) {
	src := match.Source{Name: "xlsx:" + path}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return src, eris.Wrapf(err, "refdata: open %s", path)
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return src, eris.Errorf("refdata: %s: no sheet %q", path, sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return src, eris.Errorf("refdata: %s: workbook has no sheets", path)
		}
		sheet = f.Sheets[0]
	}
	if len(sheet.Rows) == 0 {
		return src, nil
	}

	header := rowStrings(sheet.Rows[0])
	nameIdx, idIdx := columnIndex(header, nameCol), columnIndex(header, idCol)
	if nameIdx < 0 || idIdx < 0 {
		return src, eris.Errorf("refdata: %s: missing column %q or %q", path, nameCol, idCol)
	}

	for _, row := range sheet.Rows[1:] {
		cells := rowStrings(row)
		if nameIdx >= len(cells) || idIdx >= len(cells) {
			continue
		}
		if p, ok := toPair(cells[nameIdx], cells[idIdx]); ok {
			src.Pairs = append(src.Pairs, p)
		}
	}
	return src, nil
}

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}
