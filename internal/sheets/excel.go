package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"grn-sheet-sync-go/internal/models"
)

// ExcelService implements Service on local .xlsx workbooks. The spreadsheet
// id is the workbook path; each workbook is loaded once and saved after
// every mutation.
type ExcelService struct {
	mu    sync.Mutex
	files map[string]*excelize.File
}

// NewExcelService creates a workbook-backed spreadsheet service
func NewExcelService() *ExcelService {
	return &ExcelService{files: make(map[string]*excelize.File)}
}

// open returns the workbook at path, creating an empty one if needed.
// Callers hold s.mu.
func (s *ExcelService) open(path string) (*excelize.File, error) {
	if f, ok := s.files[path]; ok {
		return f, nil
	}

	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("failed to create workbook %s: %w", path, err)
		}
		logrus.Infof("Created workbook %s", path)
	} else {
		return nil, err
	}

	s.files[path] = f
	return f, nil
}

// sheet returns the workbook and makes sure it has a sheet named title.
func (s *ExcelService) sheet(path, title string) (*excelize.File, error) {
	f, err := s.open(path)
	if err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(title)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		if _, err := f.NewSheet(title); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", title, err)
		}
	}
	return f, nil
}

func (s *ExcelService) rows(f *excelize.File, title string) ([][]string, error) {
	idx, err := f.GetSheetIndex(title)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, nil
	}
	return f.GetRows(title)
}

func (s *ExcelService) ReadRange(_ context.Context, path, sheet string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(path)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	// drop trailing blank rows left behind by deletions
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}

func (s *ExcelService) ReadHeaderRow(ctx context.Context, path, sheet string) ([]string, error) {
	rows, err := s.ReadRange(ctx, path, sheet)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s *ExcelService) WriteHeaderRow(_ context.Context, path, sheet string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.sheet(path, sheet)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to update headers: %w", err)
	}
	return f.SaveAs(path)
}

func (s *ExcelService) AppendRows(_ context.Context, path, sheet string, rows [][]models.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.sheet(path, sheet)
	if err != nil {
		return err
	}
	existing, err := s.rows(f, sheet)
	if err != nil {
		return err
	}
	next := len(existing) + 1
	for next > 1 && len(existing[next-2]) == 0 {
		next--
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v.Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to append to %s: %w", sheet, err)
		}
	}
	return f.SaveAs(path)
}

func (s *ExcelService) ClearRange(_ context.Context, path, sheet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.sheet(path, sheet)
	if err != nil {
		return err
	}
	rows, err := s.rows(f, sheet)
	if err != nil {
		return err
	}
	for r := len(rows); r >= 1; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			return fmt.Errorf("failed to clear %s: %w", sheet, err)
		}
	}
	return f.SaveAs(path)
}

func (s *ExcelService) BatchDeleteRows(_ context.Context, path string, sheetID int64, indices []int) error {
	if len(indices) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(path)
	if err != nil {
		return err
	}
	list := f.GetSheetList()
	if sheetID < 0 || int(sheetID) >= len(list) {
		return fmt.Errorf("%w: id %d", ErrSheetNotFound, sheetID)
	}
	title := list[sheetID]

	for _, idx := range indices {
		if err := f.RemoveRow(title, idx+1); err != nil {
			return fmt.Errorf("failed to delete row %d: %w", idx, err)
		}
	}
	return f.SaveAs(path)
}

func (s *ExcelService) SheetMetadata(_ context.Context, path string) ([]SheetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(path)
	if err != nil {
		return nil, err
	}
	list := f.GetSheetList()
	infos := make([]SheetInfo, len(list))
	for i, title := range list {
		infos[i] = SheetInfo{ID: int64(i), Title: title}
	}
	return infos, nil
}

// Close releases every open workbook.
func (s *ExcelService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
		delete(s.files, path)
	}
	return errors.Join(errs...)
}
