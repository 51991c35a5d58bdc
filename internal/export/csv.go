// Package export renders volunteer listings as spreadsheet-friendly CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nysc/volunteers/internal/domain"
)

// ContentType is the media type of the exported file.
const ContentType = "text/csv;charset=utf-8"

// bom makes spreadsheet tools detect UTF-8.
const bom = "\uFEFF"

const dateLayout = "2006-01-02"

var header = []string{
	"ID",
	"Name",
	"Email",
	"WhatsApp",
	"Age Range",
	"Sex",
	"District",
	"Volunteer Type",
	"Start Date",
	"Duration",
	"Available Districts",
	"Status",
	"Registered On",
}

// Filename returns the download name for an export made at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("NYSC-Volunteers-%s.csv", now.Format(dateLayout))
}

// WriteCSV writes a BOM, a header row and one CRLF-terminated row per volunteer.
// Fields containing a comma, quote or newline are quoted with doubled quotes.
// Newlines inside a quoted field are written as-is; only record separators are CRLF.
func WriteCSV(w io.Writer, volunteers []domain.Volunteer) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	rw := &recordWriter{w: w}
	rw.cw = csv.NewWriter(&rw.buf)

	if err := rw.write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range volunteers {
		if err := rw.write(Row(&volunteers[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return nil
}

// recordWriter encodes one record at a time into buf and swaps its LF
// terminator for CRLF. csv.Writer.UseCRLF would also rewrite LFs inside
// quoted fields.
type recordWriter struct {
	w   io.Writer
	cw  *csv.Writer
	buf bytes.Buffer
}

func (rw *recordWriter) write(record []string) error {
	rw.buf.Reset()
	if err := rw.cw.Write(record); err != nil {
		return err
	}
	rw.cw.Flush()
	if err := rw.cw.Error(); err != nil {
		return err
	}
	line := bytes.TrimSuffix(rw.buf.Bytes(), []byte("\n"))
	if _, err := rw.w.Write(line); err != nil {
		return err
	}
	_, err := io.WriteString(rw.w, "\r\n")
	return err
}

// Row renders one volunteer with display labels.
func Row(v *domain.Volunteer) []string {
	email := v.Email
	if email == "" {
		email = "N/A"
	}

	districts := make([]string, len(v.AvailableDistricts))
	for i, d := range v.AvailableDistricts {
		districts[i] = domain.DistrictLabel(d)
	}

	return []string{
		strconv.FormatInt(v.Seq, 10),
		v.Name,
		email,
		v.WhatsApp,
		v.AgeRange,
		v.Sex,
		domain.DistrictLabel(v.District),
		domain.VolunteerTypeLabel(v.VolunteerType),
		v.StartDate.Format(dateLayout),
		domain.DurationLabel(v.Duration),
		strings.Join(districts, "; "),
		string(v.Status),
		v.CreatedAt.Format(dateLayout),
	}
}
