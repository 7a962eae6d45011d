package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/elpasofurniture/invoicer/internal/invoice"
	"github.com/elpasofurniture/invoicer/internal/pdf"
)

// Item is one exported invoice and the PDF written for it.
type Item struct {
	Invoice  *invoice.Invoice
	FilePath string
}

// Service renders batches of invoices to disk, e.g. for the accountant at
// month end.
type Service struct {
	invoices *invoice.Service
	renderer *pdf.Renderer
}

func NewService(invoices *invoice.Service, renderer *pdf.Renderer) *Service {
	return &Service{invoices: invoices, renderer: renderer}
}

// Export writes a PDF for every invoice matching filter into outputDir.
func (s *Service) Export(ctx context.Context, filter invoice.ListFilter, outputDir string) ([]Item, error) {
	invoices, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	items := make([]Item, 0, len(invoices))
	used := make(map[string]bool, len(invoices))

	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := s.writeInvoice(inv, outputDir, used)
		if err != nil {
			return nil, fmt.Errorf("writing invoice %s: %w", inv.ID, err)
		}

		items = append(items, Item{Invoice: inv, FilePath: path})
	}

	return items, nil
}

func (s *Service) writeInvoice(inv *invoice.Invoice, dir string, used map[string]bool) (string, error) {
	name := uniqueName(safeFilename(pdf.Filename(inv)), used)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := s.renderer.Render(f, inv); err != nil {
		return "", err
	}

	return path, f.Close()
}

// safeFilename keeps letters, digits, dash, dot and underscore.
func safeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			return r
		}

		return '_'
	}, name)
}

// uniqueName appends _2, _3, ... until the name is not taken by an earlier
// file of the same export, generated names included.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}

	used[candidate] = true

	return candidate
}

// GenerateSummary lists the exported invoices one per line with a grand total.
func (s *Service) GenerateSummary(items []Item) string {
	var sb strings.Builder

	total := decimal.Zero

	for _, item := range items {
		inv := item.Invoice

		file := "No PDF"
		if item.FilePath != "" {
			file = filepath.Base(item.FilePath)
		}

		sb.WriteString(fmt.Sprintf("* %s | %s | %s | %s | %s\n",
			inv.Date, inv.InvoiceNumber, inv.Customer.Name, invoice.FormatAmount(inv.Total), file))

		total = total.Add(decimal.NewFromFloat(inv.Total))
	}

	sb.WriteString(fmt.Sprintf("\n%d invoices, total %s\n", len(items), invoice.FormatCurrency(total)))

	return sb.String()
}
