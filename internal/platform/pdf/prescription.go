// Package pdf renders printable clinical documents.
package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin  = 20.0 // mm
	fontFamily  = "Arial"
	bodySize    = 11.0
	lineHeight  = 5.5
	sectionGap  = 4.0
	contentWide = 210.0 - 2*pageMargin
)

// Medication is one printed prescription line.
type Medication struct {
	Name     string
	Dosage   string
	Duration string
}

// Prescription is the content of a printed prescription. Every field is
// already formatted for display.
type Prescription struct {
	PatientName               string
	PatientDocument           string
	PatientAge                int
	PatientGender             string
	PractitionerName          string
	PractitionerLicence       string
	PractitionerQualification string
	Date                      string
	Diagnosis                 string
	Medications               []Medication
	Instructions              string
	Warnings                  []string
	IssuedAt                  time.Time
}

// RenderPrescription writes p as an A4 PDF to w.
func RenderPrescription(w io.Writer, p *Prescription) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	if !p.IssuedAt.IsZero() {
		doc.SetCreationDate(p.IssuedAt)
	}
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(tr("Receta médica"), false)
	doc.SetAuthor(tr(p.PractitionerName), false)
	doc.AddPage()

	header(doc, tr, p)
	section(doc, tr, "Paciente")
	field(doc, tr, "Nombre", p.PatientName)
	field(doc, tr, "DNI/NIE", p.PatientDocument)
	field(doc, tr, "Edad", fmt.Sprintf("%d años", p.PatientAge))
	field(doc, tr, "Sexo", p.PatientGender)

	section(doc, tr, "Diagnóstico")
	paragraph(doc, tr, orDash(p.Diagnosis))

	section(doc, tr, "Tratamiento")
	if len(p.Medications) == 0 {
		paragraph(doc, tr, "-")
	}
	for i, m := range p.Medications {
		doc.SetFont(fontFamily, "B", bodySize)
		doc.MultiCell(contentWide, lineHeight, tr(fmt.Sprintf("%d. %s", i+1, m.Name)), "", "L", false)
		doc.SetFont(fontFamily, "", bodySize)
		detail := m.Dosage
		if m.Duration != "" {
			detail += " durante " + m.Duration
		}
		if detail != "" {
			doc.SetX(pageMargin + 5)
			doc.MultiCell(contentWide-5, lineHeight, tr(detail), "", "L", false)
		}
		doc.Ln(1)
	}

	if p.Instructions != "" {
		section(doc, tr, "Indicaciones")
		paragraph(doc, tr, p.Instructions)
	}

	if len(p.Warnings) > 0 {
		section(doc, tr, "Advertencias")
		doc.SetTextColor(180, 0, 0)
		for _, warn := range p.Warnings {
			paragraph(doc, tr, "- "+warn)
		}
		doc.SetTextColor(0, 0, 0)
	}

	signature(doc, tr, p)

	if err := doc.Error(); err != nil {
		return fmt.Errorf("render prescription: %w", err)
	}
	return doc.Output(w)
}

func header(doc *fpdf.Fpdf, tr func(string) string, p *Prescription) {
	doc.SetFont(fontFamily, "B", 16)
	doc.CellFormat(contentWide, 8, tr("RECETA MÉDICA"), "", 1, "C", false, 0, "")
	doc.SetFont(fontFamily, "", bodySize)
	doc.CellFormat(contentWide, lineHeight, tr("Fecha: "+p.Date), "", 1, "R", false, 0, "")
	y := doc.GetY() + 1
	doc.Line(pageMargin, y, pageMargin+contentWide, y)
	doc.Ln(sectionGap)
}

func section(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.Ln(sectionGap)
	doc.SetFont(fontFamily, "B", 12)
	doc.CellFormat(contentWide, 6, tr(strings.ToUpper(title)), "B", 1, "L", false, 0, "")
	doc.Ln(1)
	doc.SetFont(fontFamily, "", bodySize)
}

func field(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont(fontFamily, "B", bodySize)
	doc.CellFormat(30, lineHeight, tr(label+":"), "", 0, "L", false, 0, "")
	doc.SetFont(fontFamily, "", bodySize)
	doc.CellFormat(contentWide-30, lineHeight, tr(orDash(value)), "", 1, "L", false, 0, "")
}

func paragraph(doc *fpdf.Fpdf, tr func(string) string, text string) {
	doc.MultiCell(contentWide, lineHeight, tr(text), "", "L", false)
}

func signature(doc *fpdf.Fpdf, tr func(string) string, p *Prescription) {
	doc.Ln(15)
	x := pageMargin + contentWide/2
	y := doc.GetY()
	doc.Line(x, y, pageMargin+contentWide, y)
	doc.Ln(2)
	lines := []string{p.PractitionerName, "Nº colegiado: " + p.PractitionerLicence}
	if p.PractitionerQualification != "" {
		lines = append(lines, p.PractitionerQualification)
	}
	for _, l := range lines {
		doc.SetX(x)
		doc.CellFormat(contentWide/2, lineHeight, tr(l), "", 1, "C", false, 0, "")
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
