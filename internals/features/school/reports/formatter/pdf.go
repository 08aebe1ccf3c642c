// file: internals/features/school/reports/formatter/pdf.go
package formatter

import (
	"fmt"
	"io"
	"strconv"

	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfSubjectWidth = 40.0
	pdfCellWidth    = 13.0
	pdfRowHeight    = 7.0
)

// WritePDF renders a plain A4 marksheet. Layout is functional only.
func (m Marksheet) WritePDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, tr(m.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr("Report Card "+m.Student.AcademicYear), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// student block
	info := [][2]string{
		{"Name", m.Student.Name},
		{"Scholar No", m.Student.ScholarNumber},
		{"Roll No", strconv.Itoa(m.Student.RollNumber)},
		{"Class", m.Student.ClassName},
		{"Father's Name", m.Student.FatherName},
		{"Mother's Name", m.Student.MotherName},
		{"Date of Birth", m.Student.DateOfBirth},
	}
	for _, kv := range info {
		if kv[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(35, 6, kv[0]+":")
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, tr(kv[1]))
		pdf.Ln(6)
	}
	pdf.Ln(3)

	// scholastic table
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(pdfSubjectWidth, pdfRowHeight, "Subject", "1", 0, "L", true, 0, "")
	for _, s := range m.Slots {
		pdf.CellFormat(pdfCellWidth*2, pdfRowHeight, s.Label, "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(pdfCellWidth, pdfRowHeight, "Total", "1", 0, "C", true, 0, "")
	pdf.CellFormat(pdfCellWidth, pdfRowHeight, "Grade", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	for _, row := range m.Subjects {
		pdf.CellFormat(pdfSubjectWidth, pdfRowHeight, tr(row.Name), "1", 0, "L", false, 0, "")
		for _, s := range m.Slots {
			cell := row.Cells[s.Slot]
			pdf.CellFormat(pdfCellWidth, pdfRowHeight, cell.Obtained.String(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(pdfCellWidth, pdfRowHeight, cell.Max.String(), "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(pdfCellWidth, pdfRowHeight, fmtMark(row.TotalObtained)+"/"+fmtMark(row.TotalMax), "1", 0, "C", false, 0, "")
		pdf.CellFormat(pdfCellWidth, pdfRowHeight, row.Grade, "1", 1, "C", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(pdfSubjectWidth, pdfRowHeight, "Grand Total", "1", 0, "L", true, 0, "")
	for _, s := range m.Slots {
		t := m.GrandTotal.Slots[s.Slot]
		pdf.CellFormat(pdfCellWidth, pdfRowHeight, fmtMark(t.Obtained), "1", 0, "C", true, 0, "")
		pdf.CellFormat(pdfCellWidth, pdfRowHeight, fmtMark(t.Max), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(pdfCellWidth, pdfRowHeight, fmtMark(m.GrandTotal.TotalObtained)+"/"+fmtMark(m.GrandTotal.TotalMax), "1", 0, "C", true, 0, "")
	pdf.CellFormat(pdfCellWidth, pdfRowHeight, m.GrandTotal.Grade, "1", 1, "C", true, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	summary := [][2]string{
		{"Percentage", fmtPercent(m.GrandTotal.Percentage)},
		{"Division", m.Division},
		{"Result", m.Result},
		{"Total in words", m.TotalInWords},
	}
	for _, kv := range summary {
		pdf.Cell(35, 6, kv[0]+":")
		pdf.Cell(0, 6, tr(kv[1]))
		pdf.Ln(6)
	}

	// co-scholastic
	if len(m.NonScholastic) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Co-Scholastic Areas")
		pdf.Ln(7)
		for _, cat := range m.NonScholastic {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(0, pdfRowHeight, tr(cat.Category), "1", 1, "L", true, 0, "")
			pdf.SetFont("Arial", "", 9)
			for _, it := range cat.Items {
				pdf.CellFormat(120, pdfRowHeight, tr(it.Activity), "1", 0, "L", false, 0, "")
				pdf.CellFormat(0, pdfRowHeight, tr(it.Value), "1", 1, "C", false, 0, "")
			}
		}
	}

	// health & remarks
	h := m.Health
	if h.Height != "" || h.Weight != "" || h.Attendance != "" || h.Remarks != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Health & Attendance")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 9)
		for _, kv := range [][2]string{{"Height", h.Height}, {"Weight", h.Weight}, {"Attendance", h.Attendance}} {
			if kv[1] == "" {
				continue
			}
			pdf.Cell(35, 6, kv[0]+":")
			pdf.Cell(0, 6, tr(kv[1]))
			pdf.Ln(6)
		}
		if h.Remarks != "" {
			pdf.MultiCell(0, 5, tr("Remarks: "+h.Remarks), "", "L", false)
		}
	}

	return pdf.Output(w)
}

func fmtMark(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', -1, 64)
}

func fmtPercent(p *float64) string {
	if p == nil {
		return aggregation.TokenNotApplicable
	}
	return fmt.Sprintf("%.2f%%", Round2(*p))
}
