package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vsbridge/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV exports and inserts/updates products by SKU.
//
// Expected columns: sku, name, type, price, parent_sku, qty, manage_stock,
// is_in_stock, is_recurring, attribute_code, attribute_value. Rows with an empty sku
// continue the previous product and only contribute another attribute.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

type csvRow struct {
	line       int
	SKU        string
	Name       string
	Type       string
	Price      string
	ParentSKU  string
	Qty        string
	Manage     string
	InStock    string
	Recurring  string
	Attributes map[string]string
}

// Run parses CSV rows and upserts products grouped by SKU.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("read headers: sku column is required")
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line

		if row.SKU != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		// Continuation rows (extra attributes) belong to the current product.
		if current != nil {
			for k, v := range row.Attributes {
				current.Attributes[k] = v
			}
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	p, err := row.product()
	if err != nil {
		return fmt.Errorf("line %d: %w", row.line, err)
	}
	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.SKU, err)
	}
	return nil
}

func (r *csvRow) product() (domain.Product, error) {
	if r.Name == "" || r.Price == "" {
		return domain.Product{}, fmt.Errorf("invalid product row (missing required fields) for sku %q", r.SKU)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil || price.IsNegative() {
		return domain.Product{}, fmt.Errorf("invalid price for sku %q: %s", r.SKU, r.Price)
	}
	typ := strings.ToLower(r.Type)
	switch typ {
	case "":
		typ = domain.ProductTypeSimple
	case domain.ProductTypeSimple, domain.ProductTypeConfigurable, domain.ProductTypeVirtual, domain.ProductTypeDownloadable:
	default:
		return domain.Product{}, fmt.Errorf("unknown product type for sku %q: %s", r.SKU, r.Type)
	}
	qty := 0
	if r.Qty != "" {
		qty, err = strconv.Atoi(r.Qty)
		if err != nil {
			return domain.Product{}, fmt.Errorf("invalid qty for sku %q: %s", r.SKU, r.Qty)
		}
	}

	p := domain.Product{
		SKU:         r.SKU,
		Name:        r.Name,
		Type:        typ,
		PriceCents:  int64(domain.MoneyFromDecimal(price)),
		ParentSKU:   r.ParentSKU,
		IsRecurring: parseBool(r.Recurring, false),
		ManageStock: parseBool(r.Manage, true),
		StockQty:    qty,
		InStock:     parseBool(r.InStock, true),
	}
	if len(r.Attributes) > 0 {
		p.Attributes = r.Attributes
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	sku := pick(record, index, "sku")
	attrCode := pick(record, index, "attribute_code")
	attrValue := pick(record, index, "attribute_value")

	if sku == "" && attrCode == "" {
		return nil
	}

	row := &csvRow{
		SKU:        sku,
		Name:       pick(record, index, "name"),
		Type:       pick(record, index, "type"),
		Price:      pick(record, index, "price"),
		ParentSKU:  pick(record, index, "parent_sku"),
		Qty:        pick(record, index, "qty"),
		Manage:     pick(record, index, "manage_stock"),
		InStock:    pick(record, index, "is_in_stock"),
		Recurring:  pick(record, index, "is_recurring"),
		Attributes: map[string]string{},
	}
	if attrCode != "" {
		row.Attributes[attrCode] = attrValue
	}
	return row
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
