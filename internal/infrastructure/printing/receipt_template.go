package printing

// receiptTemplate is the HTML layout of an invoice receipt.
// It receives a receiptData value.
const receiptTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>{{.Doc.DocumentType}} {{.Doc.Number}}</title>
<style>
  body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: {{if .Compact}}9pt{{else}}10pt{{end}}; color: #222; margin: 0; }
  h1 { font-size: {{if .Compact}}11pt{{else}}14pt{{end}}; margin: 0 0 4px 0; }
  .issuer, .meta, .party { margin-bottom: 8px; }
  .muted { color: #666; }
  .voided { border: 2px solid #b00; color: #b00; text-align: center; font-weight: bold; padding: 4px; margin: 6px 0; }
  table { width: 100%; border-collapse: collapse; }
  th, td { padding: 3px 4px; text-align: left; }
  th { border-bottom: 1px solid #999; }
  td.num, th.num { text-align: right; white-space: nowrap; }
  .totals td { border: none; }
  .totals tr.grand td { border-top: 1px solid #999; font-weight: bold; }
  .words { margin-top: 6px; font-size: 8pt; }
  .footer { margin-top: 10px; font-size: 8pt; text-align: center; }
</style>
</head>
<body>
<div class="issuer">
  <h1>{{.Company.Name}}</h1>
  {{if .Company.RTN}}<div>RTN: {{.Company.RTN}}</div>{{end}}
  {{if .Company.Address}}<div>{{.Company.Address}}</div>{{end}}
  {{if .Company.Phone}}<div>Tel: {{.Company.Phone}}</div>{{end}}
  {{if .Company.Email}}<div>{{.Company.Email}}</div>{{end}}
  {{if .Company.CAI}}<div>CAI: {{.Company.CAI}}</div>{{end}}
</div>

<div class="meta">
  <div><strong>{{upper .Doc.DocumentType}} No. {{.Doc.Number}}</strong></div>
  <div>Fecha: {{formatDateTime .Doc.IssuedAt}}</div>
  <div>Estado: {{statusText .Doc.Status}}</div>
  {{if .Doc.EmployeeName}}<div>Atendido por: {{title .Doc.EmployeeName}}</div>{{end}}
  {{if .Doc.PaymentMethod}}<div>Forma de pago: {{.Doc.PaymentMethod}}</div>{{end}}
</div>

{{if eq .Doc.Status "voided"}}<div class="voided">DOCUMENTO ANULADO{{if .Doc.VoidReason}}: {{.Doc.VoidReason}}{{end}}</div>{{end}}

<div class="party">
  <div>Cliente: {{default "Consumidor Final" .Doc.Customer.Name}}</div>
  <div>RTN: {{default "N/D" .Doc.Customer.RTN}}</div>
  {{if .Doc.Customer.Phone}}<div>Tel: {{.Doc.Customer.Phone}}</div>{{end}}
  {{if .Doc.Customer.Address}}<div>{{.Doc.Customer.Address}}</div>{{end}}
</div>

<table class="lines">
  <thead>
    <tr>
      <th class="num">Cant.</th>
      <th>Descripcion</th>
      {{if not .Compact}}<th class="num">Precio</th>{{end}}
      <th class="num">Total</th>
    </tr>
  </thead>
  <tbody>
  {{range .Doc.Lines}}
    <tr>
      <td class="num">{{.Quantity}}</td>
      <td>{{if .Code}}{{.Code}} {{end}}{{truncate .Description 60}}</td>
      {{if not $.Compact}}<td class="num">{{formatMoneyRaw .UnitPrice}}</td>{{end}}
      <td class="num">{{formatMoneyRaw .LineTotal}}</td>
    </tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Subtotal</td><td class="num">{{formatMoney .Doc.Subtotal}}</td></tr>
  {{range .Doc.Discounts}}
  <tr><td>Descuento {{.Name}}</td><td class="num">-{{formatMoney .Amount}}</td></tr>
  {{end}}
  {{if .Doc.Discounts}}<tr><td>Subtotal neto</td><td class="num">{{formatMoney .Doc.NetSubtotal}}</td></tr>{{end}}
  <tr><td>ISV {{formatPercent .Doc.TaxRate}}</td><td class="num">{{formatMoney .Doc.TaxAmount}}</td></tr>
  <tr class="grand"><td>TOTAL</td><td class="num">{{formatMoney .Doc.Total}}</td></tr>
</table>

<div class="words">Son: {{amountInWords .Doc.Total}}</div>
{{if .Doc.Notes}}<div class="words muted">Notas: {{.Doc.Notes}}</div>{{end}}

<div class="footer">
  {{if .Company.LegalFooter}}<div>{{.Company.LegalFooter}}</div>{{end}}
  <div class="muted">Generado {{formatDateTime .Doc.GeneratedAt}}</div>
</div>
</body>
</html>
`
