package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

type ReceiptLine struct {
	Label  string
	Amount decimal.Decimal
}

// ReceiptData is everything printed on a payment receipt.
type ReceiptData struct {
	Payment     models.Payment
	PayerName   string
	PayerEmail  string
	Description string
	Lines       []ReceiptLine
	IssuedAt    time.Time
}

// BuildReceiptPDF renders a one-page A4 receipt and its file name.
func BuildReceiptPDF(d ReceiptData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+d.Payment.Reference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Reference : "+d.Payment.Reference)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued    : "+d.IssuedAt.Format("2006-01-02 15:04"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Method    : "+string(d.Payment.Method))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Status    : "+d.Payment.Status.String())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, orDash(d.PayerName))
	pdf.Ln(7)
	pdf.Cell(0, 7, orDash(d.PayerEmail))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, orDash(d.Description), "", "", false)
	pdf.Ln(2)

	for _, line := range d.Lines {
		pdf.CellFormat(120, 7, line.Label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, line.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, d.Payment.Amount.StringFixed(2), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("RECEIPT_%s.pdf", strings.ReplaceAll(d.Payment.Reference, "/", "_"))
	return buf.Bytes(), filename, nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
