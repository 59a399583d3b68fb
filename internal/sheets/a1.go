package sheets

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// quoteSheet renders a sheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// headerRange addresses the first width cells of row 1, e.g. 'grn'!A1:AB1.
func headerRange(title string, width int) (string, error) {
	if width < 1 {
		width = 1
	}
	col, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return "", fmt.Errorf("header too wide (%d columns): %w", width, err)
	}
	return fmt.Sprintf("%s!A1:%s1", quoteSheet(title), col), nil
}
