package email

import (
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/ashureev/erp-assistant/internal/erp"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// longDate formats an ERP date as "15 octobre 2026".
func longDate(s string) string {
	if s == "" {
		return "N/A"
	}
	t, err := time.Parse(erp.DateLayout, s)
	if err != nil {
		return s
	}
	return strconv.Itoa(t.Day()) + " " + frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " TND"
}

type lineView struct {
	Name   string
	Qty    string
	Rate   string
	Amount string
}

type quotationView struct {
	Name      string
	Customer  string
	Date      string
	ValidTill string
	Status    string
	Total     string
	Terms     string
	FromName  string
	Items     []lineView
}

func newQuotationView(q *erp.Quotation, fromName string) quotationView {
	v := quotationView{
		Name:      q.Name,
		Customer:  q.PartyName,
		Date:      longDate(q.TransactionDate),
		ValidTill: longDate(q.ValidTill),
		Status:    q.Status,
		Total:     money(q.GrandTotal),
		Terms:     q.Terms,
		FromName:  fromName,
	}
	for _, it := range q.Items {
		name := it.ItemName
		if name == "" {
			name = it.ItemCode
		}
		v.Items = append(v.Items, lineView{
			Name:   name,
			Qty:    strconv.FormatFloat(it.Qty, 'f', -1, 64),
			Rate:   money(it.Rate),
			Amount: money(it.Amount),
		})
	}
	return v
}

var quotationHTML = htmltemplate.Must(htmltemplate.New("quotation.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Devis {{.Name}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin-bottom: 20px;">
    <h1 style="color: #2c3e50; margin: 0 0 10px 0;">Devis {{.Name}}</h1>
    <p style="color: #7f8c8d; margin: 0;">De la part de {{.FromName}}</p>
  </div>
  <div style="padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px; margin-bottom: 20px;">
    <h2 style="font-size: 18px;">Informations du devis</h2>
    <table style="width: 100%;">
      <tr><td><strong>Client:</strong></td><td>{{.Customer}}</td></tr>
      <tr><td><strong>Date:</strong></td><td>{{.Date}}</td></tr>
      <tr><td><strong>Valide jusqu'au:</strong></td><td>{{.ValidTill}}</td></tr>
      <tr><td><strong>Statut:</strong></td><td>{{.Status}}</td></tr>
    </table>
  </div>
  <div style="padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px; margin-bottom: 20px;">
    <h2 style="font-size: 18px;">Articles</h2>
    <table style="width: 100%; border-collapse: collapse;">
      <thead>
        <tr style="background-color: #f8f9fa;">
          <th style="text-align: left;">Article</th>
          <th style="text-align: center;">Qté</th>
          <th style="text-align: right;">Prix Unit.</th>
          <th style="text-align: right;">Total</th>
        </tr>
      </thead>
      <tbody>
{{- range .Items}}
        <tr>
          <td>{{.Name}}</td>
          <td style="text-align: center;">{{.Qty}}</td>
          <td style="text-align: right;">{{.Rate}}</td>
          <td style="text-align: right;">{{.Amount}}</td>
        </tr>
{{- end}}
      </tbody>
    </table>
  </div>
  <div style="background-color: #e3f2fd; padding: 20px; border-radius: 5px; margin-bottom: 20px;">
    <h2 style="color: #1565c0; margin: 0;">Total: {{.Total}}</h2>
  </div>
{{- if .Terms}}
  <div style="background-color: #fff3cd; padding: 15px; border-radius: 5px; margin-bottom: 20px;">
    <h3 style="color: #856404; font-size: 14px;">Conditions</h3>
    <p style="color: #856404; font-size: 13px; white-space: pre-wrap;">{{.Terms}}</p>
  </div>
{{- end}}
  <p style="color: #7f8c8d; font-size: 12px; text-align: center;">
    Ce devis a été généré automatiquement par {{.FromName}}<br>
    Pour toute question, veuillez nous contacter.
  </p>
</body>
</html>
`))

var quotationText = texttemplate.Must(texttemplate.New("quotation.txt").Parse(`
DEVIS {{.Name}}
{{.FromName}}

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

INFORMATIONS
Client: {{.Customer}}
Date: {{.Date}}
Valide jusqu'au: {{.ValidTill}}
Statut: {{.Status}}

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

ARTICLES
{{- range .Items}}
  - {{.Name}} x{{.Qty}} à {{.Rate}} = {{.Amount}}
{{- end}}

━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

TOTAL: {{.Total}}
{{if .Terms}}
CONDITIONS:
{{.Terms}}
{{end}}
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

Ce devis a été généré automatiquement.
Pour toute question, veuillez nous contacter.
`))
