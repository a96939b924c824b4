package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// Details what a confirmation email reports about one purchase
type Details struct {
	Donor   model.DonorInfo
	Squares []model.CellKey
	Amount  float64 // SEK
	Date    time.Time
}

// HighlightURL link that opens the map with the purchased squares highlighted
func HighlightURL(siteURL string, squares []model.CellKey) string {
	return fmt.Sprintf("%s?highlight=%s", strings.TrimRight(siteURL, "/"),
		strings.Join(model.CellKeysToStrings(squares), ","))
}

var swedishMonths = [...]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

// swedishLongDate formats like "19 oktober 2026"
func swedishLongDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), swedishMonths[t.Month()-1], t.Year())
}

type templateData struct {
	DonorName    string
	Greeting     string
	SquareCount  int
	Amount       string
	ShortDate    string
	LongDate     string
	HighlightURL string
}

var textTemplate = texttemplate.Must(texttemplate.New("text").Parse(`Hej {{.DonorName}}!

Tack för din generösa donation till Visne Ängar!
{{if .Greeting}}
Din hälsning: "{{.Greeting}}"
{{end}}
DONATION DETALJER:
- Antal kvadratmeter: {{.SquareCount}}
- Totalt belopp: {{.Amount}} SEK
- Datum: {{.ShortDate}}

Se dina donerade kvadratmeter på kartan:
{{.HighlightURL}}

Ditt bidrag går direkt till bevarande och skötsel av Visne Ängar på Gotland.

Med vänliga hälsningar,
Save The Square-teamet

---
Save The Square
Rädda Visne Ängar - En kvadratmeter i taget`))

var htmlTemplate = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #2d5016, #4a7c2c); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .header h1 { margin: 0; font-size: 28px; }
        .content { background: #f9f9f9; padding: 30px; border: 2px solid #4a7c2c; border-top: none; border-radius: 0 0 10px 10px; }
        .greeting { background: #e8f5e9; border-left: 4px solid #4a7c2c; padding: 15px; margin: 20px 0; font-style: italic; }
        .details { background: white; border: 1px solid #ddd; padding: 20px; margin: 20px 0; border-radius: 5px; }
        .details strong { color: #2d5016; }
        .button { display: inline-block; background: #7cb342; color: white !important; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold; margin: 20px 0; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🌿 SAVE THE SQUARE</h1>
        <p>Tack för din donation!</p>
    </div>
    <div class="content">
        <h2>Hej {{.DonorName}}!</h2>
        <p>Stort tack för din generösa donation till Visne Ängar på Gotland!</p>
        {{if .Greeting}}
        <div class="greeting">
            <strong>Din hälsning:</strong><br>
            "{{.Greeting}}"
        </div>
        {{end}}
        <div class="details">
            <h3>📋 Donationsdetaljer</h3>
            <p><strong>Antal kvadratmeter:</strong> {{.SquareCount}} m²</p>
            <p><strong>Totalt belopp:</strong> {{.Amount}} SEK</p>
            <p><strong>Datum:</strong> {{.LongDate}}</p>
        </div>
        <p>Se dina donerade kvadratmeter på kartan:</p>
        <center>
            <a href="{{.HighlightURL}}" class="button">🗺️ Visa mina kvadratmeter</a>
        </center>
        <p>Ditt bidrag går direkt till bevarande och skötsel av detta unika naturområde.</p>
        <p>Med vänliga hälsningar,<br>
        <strong>Save The Square-teamet</strong></p>
    </div>
    <div class="footer">
        <p>Save The Square - Rädda Visne Ängar</p>
        <p>En kvadratmeter i taget 🌿</p>
    </div>
</body>
</html>`))

// Compose renders the Swedish confirmation email for a purchase
func Compose(d Details, siteURL, from string) (*model.ConfirmationEmail, error) {
	if from == "" {
		from = model.DefaultFromEmail
	}
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	highlight := HighlightURL(siteURL, d.Squares)

	data := templateData{
		DonorName:    d.Donor.Name,
		Greeting:     d.Donor.Greeting,
		SquareCount:  len(d.Squares),
		Amount:       strconv.FormatFloat(d.Amount, 'f', -1, 64),
		ShortDate:    date.Format("2006-01-02"),
		LongDate:     swedishLongDate(date),
		HighlightURL: highlight,
	}

	var text, html bytes.Buffer
	if err := textTemplate.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("email text rendering failed: %w", err)
	}
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("email html rendering failed: %w", err)
	}

	return &model.ConfirmationEmail{
		To:           d.Donor.Email,
		From:         from,
		Subject:      model.ConfirmationSubject,
		Text:         text.String(),
		HTML:         html.String(),
		HighlightURL: highlight,
	}, nil
}
