// Package pdf renders a stored invoice as the two page document handed to
// customers: the invoice itself and the terms of sale on the reverse.
package pdf

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/elpasofurniture/invoicer/internal/invoice"
)

const (
	margin     = 20.0
	lineHeight = 4.0
	rowHeight  = 8.0
	footerGap  = 15.0
	logoWidth  = 80.0
	logoSmall  = 50.0
	totalsLeft = 80.0
)

// Shop is printed in the letterhead and the page footers.
type Shop struct {
	Name     string
	Address  string
	Phone    string
	LogoPath string
}

type Renderer struct {
	shop Shop
	now  func() time.Time
}

func NewRenderer(shop Shop) *Renderer {
	return &Renderer{shop: shop, now: time.Now}
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename is the download name, e.g. Invoice_INV-00245123_Maria_Lopez.pdf.
func Filename(inv *invoice.Invoice) string {
	return fmt.Sprintf("Invoice_%s_%s.pdf", inv.InvoiceNumber, whitespace.ReplaceAllString(inv.Customer.Name, "_"))
}

type page struct {
	*gofpdf.Fpdf
	tr     func(string) string
	width  float64
	height float64
	y      float64
}

// Render writes the document for inv to w.
func (r *Renderer) Render(w io.Writer, inv *invoice.Invoice) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator(r.shop.Name, true)
	doc.SetTitle("Invoice "+inv.InvoiceNumber, true)
	doc.SetCreationDate(r.now())

	width, height := doc.GetPageSize()
	p := &page{
		Fpdf:   doc,
		tr:     doc.UnicodeTranslatorFromDescriptor(""),
		width:  width,
		height: height,
	}

	r.invoicePage(p, inv)
	r.termsPage(p, inv)

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("rendering invoice %s: %w", inv.ID, err)
	}

	return nil
}

func (r *Renderer) invoicePage(p *page, inv *invoice.Invoice) {
	p.AddPage()
	p.y = 15

	r.logo(p, logoWidth, 10)

	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(0, 0, 0)
	p.center(r.shop.Address, p.y)
	p.y += 4
	p.center("Phone: "+r.shop.Phone, p.y)
	p.y += 6

	p.rule(220, 0, 0, 0.5)
	p.y += 10

	p.SetFont("Helvetica", "B", 16)
	p.text(margin, p.y, "INVOICE")

	p.SetFont("Helvetica", "", 10)
	p.right("Invoice #: "+inv.InvoiceNumber, p.y)
	p.y += 6
	p.right("Date: "+longDate(inv.Date), p.y)
	p.y += 12

	p.SetFont("Helvetica", "B", 10)
	p.text(margin, p.y, "BILL TO:")
	p.y += 6

	p.SetFont("Helvetica", "", 10)
	p.text(margin, p.y, inv.Customer.Name)
	p.y += 5

	c := inv.Customer
	if c.Address != "" {
		p.text(margin, p.y, c.Address)
		p.y += 5
	}

	if c.City != "" || c.State != "" || c.Zip != "" {
		p.text(margin, p.y, fmt.Sprintf("%s, %s %s", c.City, c.State, c.Zip))
		p.y += 5
	}

	if c.Phone != "" {
		p.text(margin, p.y, "Phone: "+c.Phone)
		p.y += 5
	}

	if c.Email != "" {
		p.text(margin, p.y, "Email: "+c.Email)
		p.y += 5
	}

	p.y += 10
	r.itemTable(p, inv.Items)
	r.totals(p, inv)
	r.paymentAndNotes(p, inv)

	p.SetTextColor(128, 128, 128)
	p.SetFont("Helvetica", "", 8)
	p.center("Thank you for your business!", p.height-footerGap)
	p.SetFont("Helvetica", "", 7)
	p.center("(See Terms and Conditions on reverse side)", p.height-footerGap+4)
	p.SetTextColor(0, 0, 0)
}

func (r *Renderer) itemTable(p *page, items []invoice.LineItem) {
	p.tableHeader()

	for i, item := range items {
		if p.y > p.height-footerGap-rowHeight*2 {
			p.AddPage()
			p.y = margin
			p.tableHeader()
		}

		if i%2 == 0 {
			p.SetFillColor(245, 245, 245)
			p.Rect(margin, p.y-5, p.width-2*margin, rowHeight, "F")
		}

		sku := item.SKU
		if sku == "" {
			sku = "-"
		}

		p.text(25, p.y, p.fit(item.Description, 73))
		p.text(100, p.y, p.fit(sku, 33))
		p.text(135, p.y, strconv.FormatFloat(item.Quantity, 'f', -1, 64))
		p.text(155, p.y, invoice.FormatAmount(item.Price))
		p.rightAt(invoice.FormatAmount(item.Amount), p.width-25, p.y)
		p.y += rowHeight
	}
}

func (p *page) tableHeader() {
	p.SetFillColor(220, 0, 0)
	p.Rect(margin, p.y-5, p.width-2*margin, rowHeight, "F")
	p.SetTextColor(255, 255, 255)
	p.SetFont("Helvetica", "B", 10)
	p.text(25, p.y, "Description")
	p.text(100, p.y, "SKU")
	p.text(135, p.y, "Qty")
	p.text(155, p.y, "Price")
	p.rightAt("Amount", p.width-25, p.y)
	p.SetTextColor(0, 0, 0)
	p.SetFont("Helvetica", "", 10)
	p.y += rowHeight
}

func (r *Renderer) totals(p *page, inv *invoice.Invoice) {
	if p.y > p.height-footerGap-60 {
		p.AddPage()
		p.y = margin
	}

	x := p.width - totalsLeft
	amountX := p.width - 25

	p.y += 10
	p.SetFont("Helvetica", "", 10)
	p.text(x, p.y, "Subtotal:")
	p.rightAt(invoice.FormatAmount(inv.Subtotal), amountX, p.y)

	taxLabel := "Tax:"
	if inv.TaxLocation == invoice.TaxLocationTexas {
		taxLabel = "Tax (8.25%):"
	}

	p.y += 6
	p.text(x, p.y, taxLabel)
	p.rightAt(invoice.FormatAmount(inv.Tax), amountX, p.y)

	p.y += 8
	p.SetFont("Helvetica", "B", 12)
	p.text(x, p.y, "TOTAL:")
	p.rightAt(invoice.FormatAmount(inv.Total), amountX, p.y)
}

func (r *Renderer) paymentAndNotes(p *page, inv *invoice.Invoice) {
	p.y += 15
	p.SetFont("Helvetica", "B", 10)
	p.text(margin, p.y, "Payment Terms: Due Upon Receipt")

	if inv.PaymentMethod != invoice.PaymentUnset {
		method := "Payment Method: " + inv.PaymentMethod.Label()
		if inv.PaymentMethod == invoice.PaymentFinancing && inv.FinancingCompany != "" {
			method += " - " + invoice.FinancingCompanyLabel(inv.FinancingCompany)
		}

		p.y += 6
		p.SetFont("Helvetica", "", 10)
		p.text(margin, p.y, method)
	}

	if inv.Notes == "" {
		return
	}

	p.y += 10
	p.SetFont("Helvetica", "B", 10)
	p.text(margin, p.y, "Notes:")
	p.y += 6
	p.SetFont("Helvetica", "", 10)
	p.paragraph(inv.Notes, 5, p.height-footerGap-10)
}

type term struct {
	title string
	body  string
}

func (r *Renderer) terms() []term {
	return []term{
		{
			title: "All Sales Are Final:",
			body:  "We do not accept returns, exchanges, or cancellations once the merchandise has been received.",
		},
		{
			title: "Limited Warranty:",
			body: "We offer a warranty covering factory defects only. Any defect must be reported immediately upon " +
				"delivery or pickup. This warranty does not cover damages caused by misuse, accidents, or normal wear and tear.",
		},
		{
			title: "Inspection:",
			body: "It is the customer's responsibility to inspect the merchandise upon receipt. By signing this " +
				"receipt, the customer acknowledges receiving the product in good condition and with all its parts.",
		},
		{
			title: "Customer Pickup:",
			body: r.shop.Name + " is not responsible for any damage incurred to the merchandise during " +
				"transportation if the customer chooses to pick up and transport the items themselves.",
		},
	}
}

func (r *Renderer) termsPage(p *page, inv *invoice.Invoice) {
	p.AddPage()
	p.y = 20

	r.logo(p, logoSmall, 5)

	p.rule(220, 0, 0, 0.5)
	p.y += 10

	p.SetFont("Helvetica", "B", 12)
	p.SetTextColor(220, 0, 0)
	p.center("TERMS AND CONDITIONS OF SALE", p.y)
	p.y += 10

	p.SetTextColor(0, 0, 0)

	for _, t := range r.terms() {
		p.SetFont("Helvetica", "B", 8)
		p.text(margin, p.y, t.title)
		p.y += 4
		p.SetFont("Helvetica", "", 8)
		p.paragraph(t.body, lineHeight, p.height)
		p.y += 4
	}

	p.y += 2
	p.rule(200, 200, 200, 0.3)
	p.y += 8

	p.SetFont("Helvetica", "B", 9)
	p.center("CUSTOMER ACKNOWLEDGMENT", p.y)
	p.y += 6

	p.SetFont("Helvetica", "", 8)
	p.paragraph("I acknowledge that I have read, understood, and agree to the above Terms and Conditions. "+
		"I confirm that I have inspected the merchandise and received it in good condition.", lineHeight, p.height)
	p.y += 16

	p.SetDrawColor(0, 0, 0)
	p.SetLineWidth(0.3)
	p.Line(margin, p.y, 95, p.y)
	p.Line(p.width-95, p.y, p.width-margin, p.y)
	p.y += 5

	p.SetFont("Helvetica", "", 7)
	p.SetTextColor(100, 100, 100)
	p.text(margin, p.y, "Customer Signature")
	p.text(p.width-95, p.y, "Date")
	p.y += 15

	p.Line(margin, p.y, 95, p.y)
	p.y += 5
	p.text(margin, p.y, "Print Name")

	p.SetTextColor(0, 0, 0)
	p.text(p.width-95, p.y, "Invoice #: "+inv.InvoiceNumber)

	p.SetFont("Helvetica", "", 8)
	p.SetTextColor(128, 128, 128)
	p.center(fmt.Sprintf("%s | %s | %s", r.shop.Name, r.shop.Address, r.shop.Phone), p.height-footerGap)
	p.SetTextColor(0, 0, 0)
}

// logo draws the shop logo centred at the given width. A missing or broken
// logo is skipped.
func (r *Renderer) logo(p *page, width, gap float64) {
	if r.shop.LogoPath == "" {
		return
	}

	info := p.RegisterImageOptions(r.shop.LogoPath, gofpdf.ImageOptions{ReadDpi: true})
	if !p.Ok() || info == nil || info.Width() == 0 {
		p.ClearError()
		return
	}

	height := info.Height() / info.Width() * width
	p.ImageOptions(r.shop.LogoPath, (p.width-width)/2, p.y, width, height, false, gofpdf.ImageOptions{}, 0, "")
	p.y += height + gap
}

func (p *page) text(x, y float64, s string) {
	p.Text(x, y, p.tr(s))
}

func (p *page) center(s string, y float64) {
	s = p.tr(s)
	p.Text((p.width-p.GetStringWidth(s))/2, y, s)
}

func (p *page) right(s string, y float64) {
	p.rightAt(s, p.width-margin, y)
}

func (p *page) rightAt(s string, x, y float64) {
	s = p.tr(s)
	p.Text(x-p.GetStringWidth(s), y, s)
}

func (p *page) rule(red, green, blue int, width float64) {
	p.SetDrawColor(red, green, blue)
	p.SetLineWidth(width)
	p.Line(margin, p.y, p.width-margin, p.y)
}

// paragraph wraps s to the content width. Lines that would pass limit move to
// a new page.
func (p *page) paragraph(s string, step, limit float64) {
	for _, line := range p.SplitLines([]byte(p.tr(s)), p.width-2*margin) {
		if p.y > limit {
			p.AddPage()
			p.y = margin
		}

		p.Text(margin, p.y, string(line))
		p.y += step
	}
}

// fit truncates s so it renders within width millimetres.
func (p *page) fit(s string, width float64) string {
	if p.GetStringWidth(p.tr(s)) <= width {
		return s
	}

	runes := []rune(s)
	for len(runes) > 0 && p.GetStringWidth(p.tr(string(runes)+"...")) > width {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + "..."
}

func longDate(d string) string {
	t, err := time.Parse(time.DateOnly, d)
	if err != nil {
		return d
	}

	return t.Format("January 2, 2006")
}
