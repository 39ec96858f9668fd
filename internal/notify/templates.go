package notify

import (
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

// emailView son los datos que reciben ambas plantillas
type emailView struct {
	Payload     models.NotificationPayload
	Period      string
	GeneratedAt string
}

func templateFuncs(loc *time.Location) map[string]interface{} {
	return map[string]interface{}{
		"inc":  func(i int) int { return i + 1 },
		"join": strings.Join,
		"qty":  func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
		"date": func(o models.Order) string {
			if o.DateInvalid || o.Date.IsZero() {
				return "Unknown"
			}
			return o.Date.In(loc).Format("2006-01-02 15:04")
		},
		"customer": func(o models.Order) string {
			if o.ContactName == "" {
				return "Unknown Customer"
			}
			return o.ContactName
		},
	}
}

const textBody = `CONWAY BIKES ORDER ALERT
========================

New sales orders containing Conway bike references have been detected.

SUMMARY:
--------
- Total Orders: {{.Payload.TotalOrders}}
- Total Items: {{.Payload.TotalItems}}
- Unique Bike References Found: {{len .Payload.UniqueReferences}}
- Time Period: {{.Period}}

BIKE REFERENCES FOUND:
---------------------
{{join .Payload.UniqueReferences ", "}}

DETAILED ORDERS:
===============
{{range $i, $o := .Payload.Orders}}
Order #{{inc $i}}: {{$o.ID}}{{with $o.DocNumber}} ({{.}}){{end}}
--------------------
Customer: {{customer $o}}
Date: {{date $o}}
Total: {{$o.Total}}

Items:
{{if $o.Items}}{{range $o.Items}}  - {{if .Name}}{{.Name}}{{else}}Unknown Item{{end}}{{with or .Code .SKU}} (Code: {{.}}){{end}} | Qty: {{qty .Units}} | Price: {{.Price}}
{{end}}{{else}}  Order Description: {{if $o.Desc}}{{$o.Desc}}{{else}}No description available{{end}}
{{end}}{{with $o.MatchingReferences}}
Matching Bike References: {{join . ", "}}
{{end}}{{end}}
---
This alert was generated automatically by the Conway Bikes monitoring system.
Generated on: {{.GeneratedAt}}
For questions or issues, please contact your system administrator.
`

const htmlBody = `<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
.header { background-color: #2c3e50; color: white; padding: 20px; border-radius: 5px; margin-bottom: 20px; }
.summary { background-color: #ecf0f1; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
.order { border: 1px solid #bdc3c7; margin-bottom: 20px; border-radius: 5px; overflow: hidden; }
.order-header { background-color: #3498db; color: white; padding: 10px 15px; font-weight: bold; }
.order-content { padding: 15px; }
.item { background-color: #f8f9fa; margin: 5px 0; padding: 10px; border-left: 4px solid #27ae60; }
.bike-reference { background-color: #e74c3c; color: white; padding: 2px 6px; border-radius: 3px; font-size: 0.9em; margin: 2px; display: inline-block; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #bdc3c7; font-size: 0.9em; color: #7f8c8d; }
</style>
</head>
<body>
<div class="header">
  <h1>Conway Bikes Order Alert</h1>
  <p>New sales orders containing Conway bike references have been detected</p>
</div>
<div class="summary">
  <h2>Summary</h2>
  <ul>
    <li><strong>Total Orders:</strong> {{.Payload.TotalOrders}}</li>
    <li><strong>Total Items:</strong> {{.Payload.TotalItems}}</li>
    <li><strong>Unique Bike References Found:</strong> {{len .Payload.UniqueReferences}}</li>
    <li><strong>Time Period:</strong> {{.Period}}</li>
  </ul>
  <h3>Bike References Found:</h3>
  <div>{{range .Payload.UniqueReferences}}<span class="bike-reference">{{.}}</span> {{end}}</div>
</div>
{{range $i, $o := .Payload.Orders}}
<div class="order">
  <div class="order-header">Order #{{inc $i}}: {{$o.ID}}{{with $o.DocNumber}} ({{.}}){{end}}</div>
  <div class="order-content">
    <p><strong>Customer:</strong> {{customer $o}}</p>
    <p><strong>Date:</strong> {{date $o}}</p>
    <p><strong>Total:</strong> {{$o.Total}}</p>
    <h4>Items:</h4>
    {{if $o.Items}}{{range $o.Items}}
    <div class="item">
      <strong>{{if .Name}}{{.Name}}{{else}}Unknown Item{{end}}</strong>{{with or .Code .SKU}}<br>Code: {{.}}{{end}}
      <br>Quantity: {{qty .Units}} | Price: {{.Price}}
    </div>{{end}}{{else}}
    <div class="item"><strong>Order Description:</strong><br>{{if $o.Desc}}{{$o.Desc}}{{else}}No description available{{end}}</div>{{end}}
    {{with $o.MatchingReferences}}<p><strong>Matching Bike References:</strong></p>
    <div>{{range .}}<span class="bike-reference">{{.}}</span> {{end}}</div>{{end}}
  </div>
</div>
{{end}}
<div class="footer">
  <p>This alert was generated automatically by the Conway Bikes monitoring system.</p>
  <p>Generated on: {{.GeneratedAt}}</p>
  <p>For questions or issues, please contact your system administrator.</p>
</div>
</body>
</html>
`

type renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func newRenderer(loc *time.Location) renderer {
	funcs := templateFuncs(loc)
	return renderer{
		text: texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(textBody)),
		html: htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(htmlBody)),
	}
}

func (r renderer) render(view emailView) (string, string, error) {
	var text, html strings.Builder
	if err := r.text.Execute(&text, view); err != nil {
		return "", "", err
	}
	if err := r.html.Execute(&html, view); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}
