// Package export renders a day's agenda as a spreadsheet for the front desk.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hackgods/clinic-agenda/internal/agenda"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetAppointments = "Citas"
	SheetRooms        = "Salas"
	SheetAlerts       = "Alertas"
	SheetTasks        = "Tareas"
)

type sheetWriter struct {
	file  *excelize.File
	bold  int
	sheet string
	row   int
}

func (w *sheetWriter) open(name string, header []any) error {
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1

	if err := w.write(header); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(name, "A1", end, w.bold)
}

func (w *sheetWriter) write(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", w.sheet, w.row, err)
	}
	w.row++
	return nil
}

// WriteAgenda writes d as an XLSX workbook with one sheet per section.
func WriteAgenda(out io.Writer, d *agenda.Data) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	w := &sheetWriter{file: f, bold: bold}

	if err := w.open(SheetAppointments, []any{"Hora", "Duración (min)", "Paciente", "Psicólogo", "Tipo", "Estado", "Sala", "Recordatorio"}); err != nil {
		return err
	}
	for _, a := range d.Appointments {
		room := a.RoomName
		if room == "" {
			room = a.RoomID
		}
		if err := w.write([]any{a.Time, a.Duration, a.PatientName, a.PsychologistName, string(a.Type), string(a.Status), room, yesNo(a.ReminderSent)}); err != nil {
			return err
		}
	}

	if err := w.open(SheetRooms, []any{"Sala", "Estado", "Capacidad", "Próxima disponibilidad"}); err != nil {
		return err
	}
	for _, r := range d.Rooms {
		next := ""
		if r.NextAvailable != nil {
			next = r.NextAvailable.Format("15:04")
		}
		if err := w.write([]any{r.Name, string(r.Status), r.Capacity, next}); err != nil {
			return err
		}
	}

	if err := w.open(SheetAlerts, []any{"Severidad", "Tipo", "Mensaje", "Resuelta", "Sugerencias"}); err != nil {
		return err
	}
	for _, a := range d.Alerts {
		if err := w.write([]any{string(a.Severity), string(a.Type), a.Message, yesNo(a.Resolved), strings.Join(a.Suggestions, "\n")}); err != nil {
			return err
		}
	}

	if err := w.open(SheetTasks, []any{"Vence", "Descripción", "Tipo", "Prioridad", "Completada"}); err != nil {
		return err
	}
	for _, t := range d.Tasks {
		if err := w.write([]any{t.DueTime, t.Description, string(t.Type), string(t.Priority), yesNo(t.Completed)}); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(out)
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
