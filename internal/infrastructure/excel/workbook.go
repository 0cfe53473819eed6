package excel

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

const sheetName = "STR_Data"

// textColumnMarkers select the columns whose cells carry long digit strings.
// Those columns get the text number format so identity and phone numbers are
// not mangled into scientific notation by spreadsheet viewers.
var textColumnMarkers = []string{
	"no_mykad", "no_mykid", "no_pengenalan", "no_akaun",
	"telefon", "poskod",
	"IC", "PH1", "PH2", "SPOUSE PH", "REL-PH1",
}

// Builder implements ports.WorkbookBuilder on top of excelize.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

var _ ports.WorkbookBuilder = (*Builder)(nil)

// Build renders the outcomes into a single-sheet workbook for the given mode.
// Row order follows the outcome slice. The returned count is the number of
// data rows written, failure rows included.
func (b *Builder) Build(mode domain.OutputMode, outcomes []domain.FileOutcome) ([]byte, int, error) {
	header := everythingColumns()
	rowFor := everythingRow
	if mode == domain.ModeMinimal {
		header = minimalColumns()
		rowFor = minimalRow
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, 0, domain.WrapError(domain.ErrTemporary, "excel: rename sheet", err)
	}
	if err := applyTextColumns(f, header); err != nil {
		return nil, 0, err
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, 0, domain.WrapError(domain.ErrTemporary, "excel: write header", err)
	}

	for i, o := range outcomes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, 0, domain.WrapError(domain.ErrTemporary, "excel: cell name", err)
		}
		row := rowFor(o)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, 0, domain.WrapError(domain.ErrTemporary, "excel: write row", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, domain.WrapError(domain.ErrTemporary, "excel: serialize workbook", err)
	}
	return buf.Bytes(), len(outcomes), nil
}

func applyTextColumns(f *excelize.File, header []string) error {
	style, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "excel: text style", err)
	}
	for i, col := range header {
		if !isTextColumn(col) {
			continue
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, "excel: column name", err)
		}
		if err := f.SetColStyle(sheetName, name, style); err != nil {
			return domain.WrapError(domain.ErrTemporary, "excel: column style", err)
		}
	}
	return nil
}

func isTextColumn(name string) bool {
	for _, marker := range textColumnMarkers {
		if name == marker || strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
