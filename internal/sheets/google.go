package sheets

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"grn-sheet-sync-go/internal/models"
)

const valueInputOption = "USER_ENTERED"

// GoogleService implements Service on the Sheets v4 API. Writes are paced by
// a limiter to stay under the per-minute write quota.
type GoogleService struct {
	service *gsheets.Service
	limiter *rate.Limiter
}

// NewGoogleService creates a new Sheets client
func NewGoogleService(ctx context.Context, writesPerMinute int, opts ...option.ClientOption) (*GoogleService, error) {
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	limit := rate.Inf
	if writesPerMinute > 0 {
		limit = rate.Limit(float64(writesPerMinute) / 60)
	}

	return &GoogleService{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (g *GoogleService) ReadRange(ctx context.Context, spreadsheetID, sheet string) ([][]string, error) {
	resp, err := g.service.Spreadsheets.Values.Get(spreadsheetID, quoteSheet(sheet)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return toStrings(resp.Values), nil
}

func (g *GoogleService) ReadHeaderRow(ctx context.Context, spreadsheetID, sheet string) ([]string, error) {
	resp, err := g.service.Spreadsheets.Values.Get(spreadsheetID, quoteSheet(sheet)+"!1:1").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", sheet, err)
	}
	rows := toStrings(resp.Values)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (g *GoogleService) WriteHeaderRow(ctx context.Context, spreadsheetID, sheet string, header []string) error {
	rng, err := headerRange(sheet, len(header))
	if err != nil {
		return err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	_, err = g.service.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update headers: %w", err)
	}

	logrus.Infof("Updated headers of %s with %d columns", sheet, len(header))
	return nil
}

func (g *GoogleService) AppendRows(ctx context.Context, spreadsheetID, sheet string, rows [][]models.Value) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			if v.IsEmpty() {
				cells[j] = ""
				continue
			}
			cells[j] = v.Interface()
		}
		values[i] = cells
	}

	resp, err := g.service.Spreadsheets.Values.Append(spreadsheetID, quoteSheet(sheet), &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", sheet, err)
	}

	if resp.Updates != nil {
		logrus.Infof("Appended %d cells to %s", resp.Updates.UpdatedCells, sheet)
	}
	return nil
}

func (g *GoogleService) ClearRange(ctx context.Context, spreadsheetID, sheet string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := g.service.Spreadsheets.Values.Clear(spreadsheetID, quoteSheet(sheet), &gsheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", sheet, err)
	}
	return nil
}

func (g *GoogleService) BatchDeleteRows(ctx context.Context, spreadsheetID string, sheetID int64, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	requests := make([]*gsheets.Request, 0, len(indices))
	for _, idx := range indices {
		requests = append(requests, &gsheets.Request{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
					// sheet 0 and row 0 are valid values
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}

	_, err := g.service.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to delete %d rows: %w", len(indices), err)
	}
	return nil
}

func (g *GoogleService) SheetMetadata(ctx context.Context, spreadsheetID string) ([]SheetInfo, error) {
	resp, err := g.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	infos := make([]SheetInfo, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		infos = append(infos, SheetInfo{ID: s.Properties.SheetId, Title: s.Properties.Title})
	}
	return infos, nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = fmt.Sprint(cell)
			}
		}
		rows[i] = cells
	}
	return rows
}
