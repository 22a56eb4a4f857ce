package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads the selected sheet of a workbook. If sheetName is empty the
// 1-based sheetIndex is used (values <= 0 mean the first sheet).
func LoadXLSX(path string, opt Options, sheetName string, sheetIndex int) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook '%s' has no sheets", filepath.Base(path))
	}
	sheet := ""
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
		}
		sheet = sheets[idx-1]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	name := filepath.Base(path)
	if len(rows) == 0 {
		return &Dataset{Name: name}, nil
	}
	records := rows[1:]
	var warnings []string
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		warnings = append(warnings, fmt.Sprintf("loaded only %d/%d rows due to MaxRows", opt.MaxRows, len(records)))
		records = records[:opt.MaxRows]
	}
	ds := FromRecords(name, rows[0], records, opt)
	ds.Warnings = append(ds.Warnings, warnings...)
	return ds, nil
}

// Load picks the loader by file extension.
func Load(path string, opt Options, sheetName string, sheetIndex int) (*Dataset, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return LoadXLSX(path, opt, sheetName, sheetIndex)
	}
	return LoadCSV(path, opt)
}
