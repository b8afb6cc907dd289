// Package report renders the load test report of an analyzed design.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/model"
)

type Meta struct {
	Project string `json:"project"`
	Author  string `json:"author"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
}

var columns = []struct {
	head  string
	width float64
}{
	{"#", 8}, {"Material", 14}, {"Section", 14}, {"Size", 24}, {"L (m)", 14}, {"L/r", 14},
	{"C (kN)", 18}, {"Pc (kN)", 18}, {"C/Pc", 12}, {"T (kN)", 18}, {"Pt (kN)", 18}, {"T/Pt", 12},
	{"Status", 28},
}

func statusText(s analysis.MemberStatus) string {
	switch s {
	case analysis.MemberFailsStrength:
		return "Fail"
	case analysis.MemberFailsSlenderness:
		return "Too slender"
	}
	return "OK"
}

func summaryText(sum *analysis.Summary) string {
	switch sum.Status {
	case analysis.Passing:
		return "The design passed the load test."
	case analysis.Failing:
		return "The design failed the load test: at least one member is overloaded."
	case analysis.FailsSlenderness:
		return "The design failed the load test: at least one member is too slender."
	}
	return "The structure is unstable. No member forces can be reported."
}

// Build lays out the report. Members follow sum.Members order.
func Build(d model.Design, sum *analysis.Summary, meta Meta) *gofpdf.Fpdf {
	if meta.Title == "" {
		meta.Title = "Load Test Report"
	}
	c := d.Conditions.Normalized()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(meta.Title, false)
	pdf.SetAuthor(meta.Author, false)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, meta.Title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	if meta.Project != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Project: %s", meta.Project))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Design: %s", d.Name))
	pdf.Ln(6)
	if meta.Author != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Author: %s", meta.Author))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Span: %d panels, %.1f m. Deck: %s. Vehicle: %s (%.0f kN).",
		c.PanelCount, c.SpanLength(), c.DeckType, sum.Truck.Name, sum.Truck.TotalKN()))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Joints: %d. Members: %d. Load cases: %d.", len(d.Joints), len(d.Members), len(sum.Results)))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, summaryText(sum))
	pdf.Ln(9)
	if sum.Repair != nil && sum.Repair.MembersAdded > 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Autofix added %d member(s) before the test.", sum.Repair.MembersAdded))
		pdf.Ln(7)
	}
	if len(sum.UnstableJoints) > 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Unstable joints: %v", sum.UnstableJoints))
		pdf.Ln(7)
	}

	if sum.Status != analysis.Unstable {
		header := func() {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetFillColor(230, 230, 230)
			for _, col := range columns {
				pdf.CellFormat(col.width, 7, col.head, "1", 0, "C", true, 0, "")
			}
			pdf.Ln(-1)
		}
		header()
		pdf.SetFont("Helvetica", "", 9)
		for _, m := range sum.Members {
			if pdf.GetY() > 190 {
				pdf.AddPage()
				header()
				pdf.SetFont("Helvetica", "", 9)
			}
			cells := []string{
				fmt.Sprint(m.ID), m.Stock.Material, m.Stock.Section, m.Shape,
				fmt.Sprintf("%.2f", m.Length), fmt.Sprintf("%.0f", m.Slenderness),
				fmt.Sprintf("%.1f", m.MaxCompressionKN), fmt.Sprintf("%.1f", m.CompressiveStrengthKN),
				fmt.Sprintf("%.2f", m.CompressionRatio),
				fmt.Sprintf("%.1f", m.MaxTensionKN), fmt.Sprintf("%.1f", m.TensileStrengthKN),
				fmt.Sprintf("%.2f", m.TensionRatio),
				statusText(m.Status),
			}
			if m.Status != analysis.MemberOK {
				pdf.SetTextColor(200, 0, 0)
			}
			for i, col := range columns {
				align := "R"
				if (i > 0 && i < 4) || i == len(columns)-1 {
					align = "L"
				}
				pdf.CellFormat(col.width, 6, cells[i], "1", 0, align, false, 0, "")
			}
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(-1)
		}
	}

	if meta.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, meta.Notes, "", "L", false)
	}
	return pdf
}

// Write renders the report as PDF into w.
func Write(w io.Writer, d model.Design, sum *analysis.Summary, meta Meta) error {
	pdf := Build(d, sum, meta)
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
