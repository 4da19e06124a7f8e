package invoice

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"storefront/internal/domain"
)

const separator = "-----------------------------------"

// Invoice is a rendered PDF ready to be streamed.
type Invoice struct {
	OrderID  string
	FileName string
	PDF      []byte
}

// Generator renders order invoices and keeps a copy of each on disk.
type Generator struct {
	dir    string
	logger *log.Logger
}

func New(dir string, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Generator{dir: dir, logger: logger}
}

// FileName is the name an order's invoice is stored and served under.
func FileName(orderID string) string {
	return "invoice-" + orderID + ".pdf"
}

// Generate renders the invoice of order for the requesting user. Only the
// owner of the order may see it. A failure to store the copy on disk is
// logged and does not fail the call.
func (g *Generator) Generate(order domain.Order, requestingUserID string) (*Invoice, error) {
	if !order.OwnedBy(requestingUserID) {
		return nil, domain.ErrUnauthorized
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetTitle("Invoice "+order.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "U", 26)
	pdf.CellFormat(0, 14, "Invoice", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, separator, "", 1, "L", false, 0, "")
	for _, item := range order.Items {
		line := fmt.Sprintf("%s - %d x $%s", item.Product.Title, item.Quantity, item.Product.Price())
		pdf.CellFormat(0, 8, pdf.UnicodeTranslatorFromDescriptor("")(line), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, separator, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 20)
	pdf.CellFormat(0, 10, "Total price: $"+order.Total().String(), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}

	inv := &Invoice{OrderID: order.ID, FileName: FileName(order.ID), PDF: buf.Bytes()}
	g.store(inv)
	return inv, nil
}

func (g *Generator) store(inv *Invoice) {
	if g.dir == "" {
		return
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		g.logger.Printf("invoice: mkdir dir=%s error=%v", g.dir, err)
		return
	}
	path := filepath.Join(g.dir, inv.FileName)
	if err := os.WriteFile(path, inv.PDF, 0o644); err != nil {
		g.logger.Printf("invoice: write path=%s error=%v", path, err)
	}
}
