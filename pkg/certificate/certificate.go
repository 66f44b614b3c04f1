// Package certificate renders the PDF receipt a submitter can keep as proof
// that a report was filed.
package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

type Attachment struct {
	Name string
	MIME string
	URL  string
}

type Data struct {
	Title       string
	Category    string
	Status      string
	Priority    bool
	SubmittedAt time.Time
	Token       string
	Attachment  *Attachment
	VerifyURL   string
	IssuedAt    time.Time
}

// VerifyURL is the link encoded in the QR code.
func VerifyURL(frontendBase, token string) string {
	return fmt.Sprintf("%s/reports/%s/verify", frontendBase, token)
}

func Filename(token string) string {
	return fmt.Sprintf("report_%s_certificate.pdf", token)
}

func Render(d Data) ([]byte, error) {
	qr, err := qrcode.Encode(d.VerifyURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Report Certificate", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Report Certificate", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opt, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 150, 20, 45, 45, false, opt, 0, "")

	rows := [][2]string{
		{"Title", d.Title},
		{"Category", d.Category},
		{"Status", d.Status},
		{"Priority", yesNo(d.Priority)},
		{"Submitted", d.SubmittedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Token", d.Token},
	}
	if a := d.Attachment; a != nil {
		mime := a.MIME
		if mime == "" {
			mime = "Unknown"
		}
		rows = append(rows,
			[2]string{"Attachment", a.Name},
			[2]string{"File Type", mime},
			[2]string{"File URL", truncate(a.URL, 80)},
		)
	}

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(30, 8, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(105, 8, tr(row[1]), "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("Scan the code or visit %s to verify this report. Issued %s.",
		d.VerifyURL, d.IssuedAt.UTC().Format("2006-01-02"))), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
