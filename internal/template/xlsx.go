package template

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"trialscreen/internal/catalog"
)

// XLSX renders the template as an Excel workbook: bold header row plus one
// example data row, same column order as the CSV rendition.
func XLSX(trial catalog.TrialType) ([]byte, error) {
	if !trial.Valid() {
		return nil, fmt.Errorf("unknown trial type %q", string(trial))
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := trial.Metadata().Name
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	cols := Columns(trial)
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}

	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	example := make([]interface{}, 0, len(cols))
	for _, v := range exampleRow(trial) {
		example = append(example, v)
	}
	if err := f.SetSheetRow(sheetName, "A2", &example); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSXFilename returns the download name for a trial's Excel template.
func XLSXFilename(trial catalog.TrialType) string {
	return string(trial) + "_template.xlsx"
}
