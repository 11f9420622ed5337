// Package report synthesizes a fallback PDF when the provider's callback
// carries no embedded result document.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"historial-tg-bot/internal/payload"
)

// MaxRecords caps the itemized employment records in a fallback report.
// Entries beyond the cap are counted in an omission notice instead.
const MaxRecords = 40

const autoGeneratedTag = "Documento generado automáticamente: el proveedor no adjuntó un documento de resultado."

// Generate renders a fallback PDF summarizing the fields extracted from a
// result payload.
func Generate(sum payload.Summary) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Reporte de semanas cotizadas"), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, tr(autoGeneratedTag), "", "C", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	writeField(pdf, tr, "Nombre", sum.Name)
	writeField(pdf, tr, "CURP", sum.CURP)
	writeField(pdf, tr, "NSS", sum.NSS)
	writeField(pdf, tr, "Semanas cotizadas", sum.WeeksTotal)
	writeField(pdf, tr, "Semanas descontadas", sum.WeeksDiscounted)
	writeField(pdf, tr, "Semanas reintegradas", sum.WeeksReinstated)
	pdf.Ln(4)

	if len(sum.Records) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr("Historial laboral"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)

		shown := sum.Records
		if len(shown) > MaxRecords {
			shown = shown[:MaxRecords]
		}
		for i, rec := range shown {
			writeRecord(pdf, tr, i+1, rec)
		}

		if omitted := len(sum.Records) - MaxRecords; omitted > 0 {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "I", 10)
			pdf.CellFormat(0, 6, tr(fmt.Sprintf("... y %d registros adicionales omitidos.", omitted)), "", 1, "L", false, 0, "")
		}
	} else {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, tr("Sin registros de historial laboral en la respuesta."), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render fallback report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeField(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		value = "—"
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(50, 7, tr(label+":"), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
}

func writeRecord(pdf *fpdf.Fpdf, tr func(string) string, n int, rec payload.EmploymentRecord) {
	employer := rec.Employer
	if employer == "" {
		employer = "(patrón no especificado)"
	}
	line := fmt.Sprintf("%d. %s", n, employer)
	if rec.Registration != "" {
		line += fmt.Sprintf(" [%s]", rec.Registration)
	}
	pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")

	var detail string
	switch {
	case rec.StartDate != "" && rec.EndDate != "":
		detail = fmt.Sprintf("    %s a %s", rec.StartDate, rec.EndDate)
	case rec.StartDate != "":
		detail = fmt.Sprintf("    Desde %s (vigente)", rec.StartDate)
	}
	if rec.Salary != "" {
		if detail == "" {
			detail = "   "
		}
		detail += fmt.Sprintf("  Salario base: %s", rec.Salary)
	}
	if detail != "" {
		pdf.CellFormat(0, 5, tr(detail), "", 1, "L", false, 0, "")
	}
}
