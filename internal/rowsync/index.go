// Package rowsync keeps exactly one generation of rows per source file in a
// table, keyed by a correlation column.
package rowsync

import (
	"github.com/sirupsen/logrus"
)

// CorrelationColumn ties every row to the stored object it came from.
const CorrelationColumn = "drive_file_id"

// columnIndex returns the position of column in the header row of snapshot.
func columnIndex(snapshot [][]string, column string) int {
	if len(snapshot) == 0 {
		return -1
	}
	for i, name := range snapshot[0] {
		if name == column {
			return i
		}
	}
	return -1
}

// ExistingIDs collects the distinct non-empty values of column across the
// data rows of snapshot. A missing column yields an empty set.
func ExistingIDs(snapshot [][]string, column string) map[string]struct{} {
	ids := make(map[string]struct{})
	if len(snapshot) == 0 {
		return ids
	}

	col := columnIndex(snapshot, column)
	if col < 0 {
		logrus.Warnf("No '%s' column found in sheet", column)
		return ids
	}

	for _, row := range snapshot[1:] {
		if len(row) > col && row[col] != "" {
			ids[row[col]] = struct{}{}
		}
	}
	logrus.Infof("Found %d existing file IDs in sheet", len(ids))
	return ids
}

// MatchingRows returns the 0-based sheet indices of data rows whose column
// equals id. The header is index 0 and is never returned.
func MatchingRows(snapshot [][]string, column, id string) []int {
	col := columnIndex(snapshot, column)
	if col < 0 {
		return nil
	}
	var indices []int
	for i := 1; i < len(snapshot); i++ {
		row := snapshot[i]
		if len(row) > col && row[col] == id {
			indices = append(indices, i)
		}
	}
	return indices
}
