package excel

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gocoex/domain/core"
	"gocoex/domain/dataset"
	"gocoex/internal"
	apperrors "gocoex/internal/errors"
	"gocoex/ports"
)

// Sheet names a bundle workbook must carry. Lookup is case-insensitive.
const (
	SheetExpression  = "expression"
	SheetCoordinates = "coordinates"
)

// WorkbookResolver implements ports.ExpressionResolverPort over xlsx files
type WorkbookResolver struct {
	logger *internal.Logger
}

// NewWorkbookResolver creates a workbook-backed bundle resolver
func NewWorkbookResolver() *WorkbookResolver {
	return &WorkbookResolver{logger: internal.DefaultLogger.Named("excel")}
}

// ResolveBundle reads the workbook at req.Source, optionally narrowed to a
// subset of entity columns
func (r *WorkbookResolver) ResolveBundle(ctx context.Context, req ports.BundleResolutionRequest) (*dataset.ExpressionBundle, error) {
	startTime := time.Now()

	bundle, err := ReadBundle(req.Source)
	if err != nil {
		return nil, err
	}
	if len(req.Entities) > 0 {
		bundle, err = filterEntities(bundle, req.Entities)
		if err != nil {
			return nil, err
		}
	}

	r.logger.Info("loaded %s in %.2fms (%d spots, %d entities)",
		req.Source, float64(time.Since(startTime).Nanoseconds())/1e6, bundle.SpotCount(), bundle.EntityCount())
	return bundle, nil
}

// ReadBundle loads a full expression bundle from a two-sheet workbook: an
// expression sheet (spot ID column then one column per entity) and a
// coordinates sheet (spot, x, y)
func ReadBundle(path string) (*dataset.ExpressionBundle, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.Validationf("workbook not found: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	spots, entities, values, err := readExpressionSheet(f)
	if err != nil {
		return nil, err
	}
	coordsByID, err := readCoordinateSheet(f)
	if err != nil {
		return nil, err
	}

	coords := make([][2]float64, len(spots))
	for i, id := range spots {
		c, ok := coordsByID[id]
		if !ok {
			return nil, apperrors.Validationf("coordinates missing for spot %s", id)
		}
		coords[i] = c
	}

	return dataset.NewExpressionBundle(spots, entities, values, coords)
}

func readExpressionSheet(f *excelize.File) ([]core.SpotID, []core.EntityKey, [][]float64, error) {
	sheet, ok := findSheet(f, SheetExpression)
	if !ok {
		return nil, nil, nil, apperrors.Validationf("workbook has no %q sheet", SheetExpression)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, "reading expression sheet")
	}
	if len(rows) < 2 {
		return nil, nil, nil, apperrors.Validation("expression sheet needs a header row and at least one spot row")
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, nil, nil, apperrors.Validation("expression sheet needs a spot ID column and at least one entity column")
	}
	entities := make([]core.EntityKey, len(header)-1)
	seen := make(map[core.EntityKey]bool, len(entities))
	for j, h := range header[1:] {
		key := core.EntityKey(strings.TrimSpace(h))
		if key == "" {
			return nil, nil, nil, apperrors.Validationf("expression header column %d is empty", j+2)
		}
		if seen[key] {
			return nil, nil, nil, apperrors.Validationf("duplicate entity column %s", key)
		}
		seen[key] = true
		entities[j] = key
	}

	spots := make([]core.SpotID, 0, len(rows)-1)
	values := make([][]float64, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		id := core.SpotID(strings.TrimSpace(row[0]))
		if id == "" {
			return nil, nil, nil, apperrors.Validationf("expression row %d has no spot ID", i+2)
		}

		vals := make([]float64, len(entities))
		for j := range entities {
			// Trailing empty cells are dropped by excelize; treat absent
			// and blank cells as zero expression
			cell := ""
			if j+1 < len(row) {
				cell = strings.TrimSpace(row[j+1])
			}
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, nil, apperrors.Validationf("expression cell for spot %s, entity %s is not numeric: %q", id, entities[j], cell)
			}
			vals[j] = v
		}
		spots = append(spots, id)
		values = append(values, vals)
	}

	return spots, entities, values, nil
}

func readCoordinateSheet(f *excelize.File) (map[core.SpotID][2]float64, error) {
	sheet, ok := findSheet(f, SheetCoordinates)
	if !ok {
		return nil, apperrors.Validationf("workbook has no %q sheet", SheetCoordinates)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(err, "reading coordinates sheet")
	}
	if len(rows) < 2 {
		return nil, apperrors.Validation("coordinates sheet needs a header row and at least one spot row")
	}

	spotCol, xCol, yCol := -1, -1, -1
	for j, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "spot", "spot_id":
			spotCol = j
		case "x":
			xCol = j
		case "y":
			yCol = j
		}
	}
	if spotCol < 0 || xCol < 0 || yCol < 0 {
		return nil, apperrors.Validation("coordinates sheet needs spot, x and y columns")
	}

	coords := make(map[core.SpotID][2]float64, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		get := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		id := core.SpotID(get(spotCol))
		if id == "" {
			return nil, apperrors.Validationf("coordinates row %d has no spot ID", i+2)
		}
		x, errX := strconv.ParseFloat(get(xCol), 64)
		y, errY := strconv.ParseFloat(get(yCol), 64)
		if errX != nil || errY != nil {
			return nil, apperrors.Validationf("coordinates for spot %s are not numeric", id)
		}
		coords[id] = [2]float64{x, y}
	}
	return coords, nil
}

// filterEntities rebuilds a bundle with only the requested entity columns,
// in request order
func filterEntities(b *dataset.ExpressionBundle, keys []string) (*dataset.ExpressionBundle, error) {
	entities := make([]core.EntityKey, len(keys))
	cols := make([]int, len(keys))
	for j, k := range keys {
		key := core.EntityKey(strings.TrimSpace(k))
		idx, ok := b.EntityIndex(key)
		if !ok {
			return nil, apperrors.Validationf("workbook has no entity %s", key)
		}
		entities[j] = key
		cols[j] = idx
	}

	values := make([][]float64, b.SpotCount())
	for i := range values {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = b.Values[i][c]
		}
		values[i] = row
	}
	return dataset.NewExpressionBundle(b.Spots, entities, values, b.Coords)
}

func findSheet(f *excelize.File, want string) (string, bool) {
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, want) {
			return name, true
		}
	}
	return "", false
}
