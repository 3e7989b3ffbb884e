package service

import "fmt"

// Built-in template markup. Sections wrapped in {{#field}}...{{/field}} are
// dropped entirely when the backing field is empty, so optional headings
// never render above blank bodies.

func defaultClientAgreementTemplate(logoURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Georgia, serif; margin: 0; color: #1a1a1a; }
  h1 { font-size: 22px; }
  h2 { font-size: 15px; margin-top: 24px; }
  .logo { height: 48px; }
  .meta { color: #555; font-size: 12px; }
</style>
</head>
<body>
<img class="logo" src="%s" alt="logo">
<h1>Client Services Agreement</h1>
<p class="meta">Date: {{date}}</p>
<p>This agreement is entered into between <strong>{{company_name}}</strong>
(&ldquo;Client&rdquo;) and <strong>{{signer_name}}</strong> ({{signer_email}}).</p>
{{#project_scope}}
<h2>Scope of Work</h2>
<p>{{project_scope}}</p>
{{/project_scope}}
{{#payment_amount}}
<h2>Compensation</h2>
<p>The Client agrees to pay a total of {{payment_amount}} under the terms below.</p>
{{/payment_amount}}
{{#payment_terms}}
<h2>Payment Terms</h2>
<p>{{payment_terms}}</p>
{{/payment_terms}}
<h2>Term</h2>
<p>This agreement takes effect on {{start_date}}{{#end_date}} and ends on {{end_date}}{{/end_date}}.</p>
<h2>Signature</h2>
<p>Signed by {{signer_name}}, {{signer_email}}</p>
</body>
</html>`, logoURL)
}

func defaultFreelancerAgreementTemplate(logoURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Georgia, serif; margin: 0; color: #1a1a1a; }
  h1 { font-size: 22px; }
  h2 { font-size: 15px; margin-top: 24px; }
  .logo { height: 48px; }
  .meta { color: #555; font-size: 12px; }
</style>
</head>
<body>
<img class="logo" src="%s" alt="logo">
<h1>Freelancer Agreement</h1>
<p class="meta">Date: {{date}}</p>
<p>This agreement is entered into with <strong>{{signer_name}}</strong>
({{signer_email}}) (&ldquo;Freelancer&rdquo;).</p>
{{#scope}}
<h2>Scope of Work</h2>
<p>{{scope}}</p>
{{/scope}}
{{#hourly_rate}}
<h2>Compensation</h2>
<p>The Freelancer will be compensated at an hourly rate of {{hourly_rate}}.</p>
{{/hourly_rate}}
<h2>Term</h2>
<p>This agreement takes effect on {{start_date}}.</p>
<h2>Signature</h2>
<p>Signed by {{signer_name}}, {{signer_email}}</p>
</body>
</html>`, logoURL)
}

func defaultInvoiceTemplate(logoURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 0; color: #1a1a1a; }
  h1 { font-size: 24px; }
  .logo { height: 48px; }
  .meta { color: #555; font-size: 12px; }
  table { width: 100%%; border-collapse: collapse; margin-top: 16px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; font-size: 13px; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 16px; text-align: right; font-size: 14px; }
</style>
</head>
<body>
<img class="logo" src="%s" alt="logo">
<h1>Invoice {{invoice_number}}</h1>
<p class="meta">Issued: {{date}}{{#due_date}} &middot; Due: {{due_date}}{{/due_date}}</p>
<p>Billed to: <strong>{{client_name}}</strong> ({{signer_email}})</p>
<table>
<thead>
<tr><th>Description</th><th class="num">Qty</th><th class="num">Rate</th><th class="num">Amount</th></tr>
</thead>
<tbody>
{{items_table}}
</tbody>
</table>
<div class="totals">
<p>Subtotal: {{subtotal}}</p>
<p>Tax ({{tax_rate}}%%): {{tax_amount}}</p>
<p><strong>Total: {{total}}</strong></p>
</div>
{{#notes}}
<h2>Notes</h2>
<p>{{notes}}</p>
{{/notes}}
</body>
</html>`, logoURL)
}
