package media

import (
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/looplet/looplet/pkg/models"
	"github.com/pkg/errors"
)

// exportRow is one CSV line of a catalog export. Tags are joined with "; ".
type exportRow struct {
	ID        int    `csv:"id"`
	Kind      string `csv:"kind"`
	Filename  string `csv:"filename"`
	Title     string `csv:"title"`
	Tags      string `csv:"tags"`
	Credit    string `csv:"credit"`
	CreatedAt string `csv:"created_at"`
	MimeType  string `csv:"mime_type"`
}

const exportTagSeparator = "; "

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newExportRow(m *models.Media) *exportRow {
	return &exportRow{
		ID:        m.ID,
		Kind:      string(m.Kind),
		Filename:  m.Filename,
		Title:     m.Title,
		Tags:      strings.Join(m.Tags, exportTagSeparator),
		Credit:    deref(m.Credit),
		CreatedAt: deref(m.CreatedAt),
		MimeType:  deref(m.MimeType),
	}
}

// WriteCSV writes items as CSV with a header row, in the order given.
func WriteCSV(w io.Writer, items []*models.Media) error {
	rows := make([]*exportRow, 0, len(items))
	for _, m := range items {
		rows = append(rows, newExportRow(m))
	}
	return errors.WithStack(gocsv.Marshal(rows, w))
}
