package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"qrattend/internal/attendance"
)

// SheetName is the single worksheet of an attendance export.
const SheetName = "Asistencias"

// ContentType of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{
	"Clase", "Legajo", "Nombre", "Apellido", "DNI", "Fecha/Hora Asistencia",
	"Latitud Alumno", "Longitud Alumno", "Distancia al Aula (m)", "Validación Ubicación",
}

// AttendanceWorkbook renders the listing as an xlsx workbook. Timestamps are
// shown in loc.
func AttendanceWorkbook(rows []attendance.Listing, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, r := range rows {
		title := r.Class.Titulo
		if title == "" {
			title = "N/A"
		}
		var distance any = "N/A"
		if r.Distance != nil {
			distance = *r.Distance
		}
		validated := "No"
		if r.Validated {
			validated = "Sí"
		}
		values := []any{
			title, r.Legajo, r.Nombre, r.Apellido, r.DNI,
			r.SubmittedAt.In(loc).Format("02/01/2006 15:04:05"),
			r.Latitude, r.Longitude, distance, validated,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := applyDefaultFormatting(f, SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// WriteAttendance streams the workbook to w.
func WriteAttendance(w io.Writer, rows []attendance.Listing, loc *time.Location) error {
	f, err := AttendanceWorkbook(rows, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// Filename builds the download name, scoped to the class when filtered.
func Filename(classTitle string, now time.Time) string {
	if classTitle == "" {
		return fmt.Sprintf("asistencias_%s.xlsx", now.Format("20060102"))
	}
	return fmt.Sprintf("asistencias_%s_%s.xlsx", sanitize(classTitle), now.Format("20060102"))
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) > 60 {
		out = out[:60]
	}
	return string(out)
}
