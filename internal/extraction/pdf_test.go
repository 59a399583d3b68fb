package extraction

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a one-page document with a correct cross-reference table.
func minimalPDF() []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	}
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		b.WriteString(strconv.Itoa(i+1) + " 0 obj\n" + obj + "\nendobj\n")
	}
	xref := b.Len()
	b.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for _, off := range offsets {
		s := strconv.Itoa(off)
		b.WriteString(strings.Repeat("0", 10-len(s)) + s + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func TestValidatePDFAcceptsDocument(t *testing.T) {
	pages, err := ValidatePDF(minimalPDF())
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestValidatePDFRejectsOtherPayloads(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte("<html>login required</html>"), []byte("%PDF-1.4\ngarbage")} {
		_, err := ValidatePDF(payload)
		assert.ErrorIs(t, err, ErrNotPDF)
	}
}
