package service

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hirestack/docflow/model"
)

// Semantic field types drive how a placeholder value is formatted.
const (
	formatText      = "text"
	formatCurrency  = "currency"
	formatDate      = "date"
	formatMultiline = "multiline"
	formatHTML      = "html" // pre-built markup, substituted verbatim
)

// fieldFormats maps placeholder names to their semantic type. Unlisted
// fields render as plain text.
var fieldFormats = map[string]string{
	"payment_amount": formatCurrency,
	"hourly_rate":    formatCurrency,
	"subtotal":       formatCurrency,
	"tax_amount":     formatCurrency,
	"total":          formatCurrency,

	"date":       formatDate,
	"start_date": formatDate,
	"end_date":   formatDate,
	"due_date":   formatDate,
	"issue_date": formatDate,

	"project_scope": formatMultiline,
	"scope":         formatMultiline,
	"payment_terms": formatMultiline,
	"deliverables":  formatMultiline,
	"notes":         formatMultiline,

	"items_table": formatHTML,
}

var (
	sectionRe = regexp.MustCompile(`(?s)\{\{#([a-z0-9_]+)\}\}(.*?)\{\{/([a-z0-9_]+)\}\}`)
	tokenRe   = regexp.MustCompile(`\{\{([a-z0-9_]+)\}\}`)
	markerRe  = regexp.MustCompile(`\{\{[#/][a-z0-9_]+\}\}`)
)

// RenderTemplate fills a template's placeholders with the document's field
// values. It is a pure function: the same document and template always
// produce identical markup. Empty fields render as the empty string and
// conditional sections backed by an empty field are omitted entirely; raw
// tokens never leak into the output.
func RenderTemplate(doc *model.Document, tpl *model.Template) string {
	values := placeholderValues(doc)

	// Pass 1: conditional sections. A section is dropped wholesale when its
	// backing field is empty.
	markup := sectionRe.ReplaceAllStringFunc(tpl.Content, func(match string) string {
		parts := sectionRe.FindStringSubmatch(match)
		field, body, closing := parts[1], parts[2], parts[3]
		if field != closing {
			// Mismatched markers; leave the body for the token pass.
			return body
		}
		if values[field] == "" {
			return ""
		}
		return body
	})

	// Pass 2: flat, non-recursive token substitution.
	markup = tokenRe.ReplaceAllStringFunc(markup, func(match string) string {
		field := tokenRe.FindStringSubmatch(match)[1]
		return formatValue(field, values[field])
	})

	// Stray section markers are scrubbed rather than leaked.
	return markerRe.ReplaceAllString(markup, "")
}

// placeholderValues collects every substitutable value for a document: the
// common attributes, the kind-specific field bag, and for invoices the
// server-computed money columns and the rendered items table.
func placeholderValues(doc *model.Document) map[string]string {
	values := map[string]string{
		"signer_name":  doc.SignerName,
		"signer_email": doc.SignerEmail,
		"date":         doc.CreatedAt.Format("2006-01-02"),
	}
	for name, value := range doc.Fields {
		values[name] = value
	}
	if doc.Kind == model.KindInvoice {
		values["subtotal"] = strconv.FormatFloat(doc.Subtotal, 'f', 2, 64)
		values["tax_amount"] = strconv.FormatFloat(doc.TaxAmount, 'f', 2, 64)
		values["total"] = strconv.FormatFloat(doc.Total, 'f', 2, 64)
		values["tax_rate"] = strconv.FormatFloat(doc.TaxRate, 'f', -1, 64)
		values["items_table"] = renderItemRows(doc.Items)
	}
	return values
}

// formatValue renders a raw field value per its semantic type. Empty stays
// empty for every type.
func formatValue(field, raw string) string {
	if raw == "" {
		return ""
	}
	switch fieldFormats[field] {
	case formatCurrency:
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return html.EscapeString(raw)
		}
		return "$" + strconv.FormatFloat(model.RoundCents(amount), 'f', 2, 64)
	case formatDate:
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return html.EscapeString(raw)
		}
		return parsed.Format("January 2, 2006")
	case formatMultiline:
		escaped := html.EscapeString(raw)
		escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
		return strings.ReplaceAll(escaped, "\n", "<br>")
	case formatHTML:
		return raw
	default:
		return html.EscapeString(raw)
	}
}

// renderItemRows builds the invoice line-item rows.
func renderItemRows(items []model.InvoiceItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b,
			`<tr><td>%s</td><td class="num">%s</td><td class="num">$%.2f</td><td class="num">$%.2f</td></tr>`,
			html.EscapeString(item.Description),
			strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			item.Rate,
			item.Amount,
		)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
