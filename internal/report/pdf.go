// Package report renders stored scans as downloadable documents.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

var statusColors = map[models.ScanStatus][3]int{
	models.StatusSafe:       {66, 190, 101},
	models.StatusSuspicious: {241, 194, 27},
	models.StatusMalicious:  {250, 77, 86},
}

var kindLabels = map[models.InputKind]string{
	models.InputURL:  "URL",
	models.InputFile: "File (SHA-256)",
	models.InputHash: "Hash lookup",
}

// ScanPDF renders a one-page A4 safety report for scan.
func ScanPDF(scan *models.ScanRecord) (*bytes.Buffer, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Cyber Guard Safety Report", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(15, 98, 254)
	pdf.Cell(0, 10, "Cyber Guard Safety Report")
	pdf.Ln(12)

	pdf.SetFillColor(240, 240, 240)
	pdf.Rect(10, 22, 190, 40, "F")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(12, 25)
	pdf.Cell(0, 10, "Scan ID: "+scan.ID)
	pdf.SetXY(120, 25)
	pdf.Cell(0, 10, "Date: "+scan.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))

	pdf.SetXY(12, 32)
	pdf.SetFont("Arial", "", 10)
	kind := kindLabels[scan.InputKind]
	if kind == "" {
		kind = string(scan.InputKind)
	}
	pdf.Cell(0, 10, "Input: "+kind)

	pdf.SetXY(12, 40)
	pdf.SetFont("Arial", "B", 12)
	c, ok := statusColors[scan.Status]
	if !ok {
		c = [3]int{0, 0, 0}
	}
	pdf.SetTextColor(c[0], c[1], c[2])
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s (risk score %d/100)", scan.Status, scan.Score))

	pdf.Ln(25)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Summary")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr(scan.Summary), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Reasons")
	pdf.Ln(9)
	pdf.SetFont("Courier", "", 10)
	if len(scan.Reasons) == 0 {
		pdf.Cell(0, 8, "No risk signals were reported.")
		pdf.Ln(8)
	}
	for _, reason := range scan.Reasons {
		pdf.MultiCell(0, 6, tr(" > "+reason), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 5, "This report reflects automated checks at the time of the scan. Uploaded files are hashed and never executed or stored.", "", "L", false)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	return &buf, err
}
