package excel

import (
	"github.com/xuri/excelize/v2"

	"gocoex/domain/dataset"
	apperrors "gocoex/internal/errors"
)

// WriteBundle saves a bundle as a two-sheet workbook readable by ReadBundle
func WriteBundle(path string, b *dataset.ExpressionBundle) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the expression sheet
	if err := f.SetSheetName("Sheet1", SheetExpression); err != nil {
		return apperrors.Wrap(err, "naming expression sheet")
	}
	if _, err := f.NewSheet(SheetCoordinates); err != nil {
		return apperrors.Wrap(err, "creating coordinates sheet")
	}

	header := make([]interface{}, 0, len(b.Entities)+1)
	header = append(header, "spot_id")
	for _, e := range b.Entities {
		header = append(header, string(e))
	}
	if err := writeRow(f, SheetExpression, 1, header); err != nil {
		return err
	}
	for i, id := range b.Spots {
		row := make([]interface{}, 0, len(b.Entities)+1)
		row = append(row, string(id))
		for _, v := range b.Values[i] {
			row = append(row, v)
		}
		if err := writeRow(f, SheetExpression, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, SheetCoordinates, 1, []interface{}{"spot", "x", "y"}); err != nil {
		return err
	}
	for i, id := range b.Spots {
		row := []interface{}{string(id), b.Coords[i][0], b.Coords[i][1]}
		if err := writeRow(f, SheetCoordinates, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.Wrap(err, "saving workbook")
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, cells []interface{}) error {
	for j, v := range cells {
		cell, err := excelize.CoordinatesToCellName(j+1, rowIdx)
		if err != nil {
			return apperrors.Wrap(err, "addressing cell")
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return apperrors.Wrap(err, "writing cell")
		}
	}
	return nil
}
