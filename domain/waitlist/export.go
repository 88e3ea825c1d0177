package waitlist

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/constants"
)

const ExportContentType = "text/csv; charset=utf-8"

var exportHeader = []string{"id", "email", "role", "usecase", "created_at"}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// WriteCSV writes one row per submission in the order given.
func WriteCSV(w io.Writer, submissions []*models.Submission) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return err
	}

	for _, s := range submissions {
		record := []string{
			s.ID,
			flattenField(&s.Email),
			flattenField(s.Role),
			flattenField(s.Usecase),
			s.CreatedAt.UTC().Format(constants.RFC3339DateTimeFormat),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func flattenField(v *string) string {
	if v == nil {
		return ""
	}
	return lineBreaks.Replace(*v)
}
