package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads a product CSV with the columns key, title, description,
// price and image_url, and upserts one product per row by key.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

type csvRow struct {
	line     int
	Key      string
	Title    string
	Desc     string
	Price    string
	ImageURL string
}

// Run parses CSV rows and upserts products. Rows without a key are skipped.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"key", "title", "price"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Title == "" || row.Price == "" {
		return fmt.Errorf("line %d: invalid product row (missing required fields) for key %q", row.line, row.Key)
	}
	cents, err := parsePrice(row.Price)
	if err != nil {
		return fmt.Errorf("line %d: price for key %q: %w", row.line, row.Key, err)
	}

	p := domain.Product{
		Key:         row.Key,
		Title:       row.Title,
		Description: row.Desc,
		PriceCents:  cents,
		ImageURL:    row.ImageURL,
	}
	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return nil
}

// parsePrice reads a decimal amount such as "12.5" or "$12.50" into cents.
func parsePrice(raw string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if err != nil {
		return 0, err
	}
	if d.Sign() <= 0 {
		return 0, errors.New("must be positive")
	}
	if !d.Equal(d.Round(2)) {
		return 0, errors.New("more than two decimal places")
	}
	return d.Shift(2).IntPart(), nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	key := pick(record, index, "key")
	if key == "" {
		return nil
	}
	return &csvRow{
		Key:      key,
		Title:    pick(record, index, "title"),
		Desc:     pick(record, index, "description"),
		Price:    pick(record, index, "price"),
		ImageURL: pick(record, index, "image_url"),
	}
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
