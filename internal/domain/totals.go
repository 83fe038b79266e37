package domain

// Totals segment codes in the order they are rendered.
const (
	SegmentSubtotal   = "subtotal"
	SegmentDiscount   = "discount"
	SegmentShipping   = "shipping"
	SegmentTax        = "tax"
	SegmentGrandTotal = "grand_total"
)

// Totals is the monetary summary of a cart. Quote amounts equal base amounts since
// every store prices in its base currency.
type Totals struct {
	GrandTotal               Money          `json:"grand_total"`
	BaseGrandTotal           Money          `json:"base_grand_total"`
	Subtotal                 Money          `json:"subtotal"`
	BaseSubtotal             Money          `json:"base_subtotal"`
	DiscountAmount           Money          `json:"discount_amount"`
	BaseDiscountAmount       Money          `json:"base_discount_amount"`
	SubtotalWithDiscount     Money          `json:"subtotal_with_discount"`
	BaseSubtotalWithDiscount Money          `json:"base_subtotal_with_discount"`
	CouponCode               string         `json:"coupon_code"`
	ShippingAmount           Money          `json:"shipping_amount"`
	BaseShippingAmount       Money          `json:"base_shipping_amount"`
	ShippingTaxAmount        Money          `json:"shipping_tax_amount"`
	TaxAmount                Money          `json:"tax_amount"`
	BaseTaxAmount            Money          `json:"base_tax_amount"`
	BaseCurrencyCode         string         `json:"base_currency_code"`
	QuoteCurrencyCode        string         `json:"quote_currency_code"`
	ItemsQty                 int            `json:"items_qty"`
	Items                    []TotalsItem   `json:"items"`
	Segments                 []TotalSegment `json:"total_segments"`
}

// TotalsItem is the per-line breakdown inside Totals.
type TotalsItem struct {
	ItemID          string  `json:"item_id"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	ProductType     string  `json:"product_type"`
	ParentSKU       string  `json:"parentSku,omitempty"`
	Qty             int     `json:"qty"`
	Price           Money   `json:"price"`
	BasePrice       Money   `json:"base_price"`
	RowTotal        Money   `json:"row_total"`
	BaseRowTotal    Money   `json:"base_row_total"`
	DiscountAmount  Money   `json:"discount_amount"`
	TaxPercent      float64 `json:"tax_percent"`
	TaxAmount       Money   `json:"tax_amount"`
	RowTotalInclTax Money   `json:"row_total_incl_tax"`
	Options         string  `json:"options"`
}

// TotalSegment is one labelled line of the totals summary.
type TotalSegment struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Value Money  `json:"value"`
}

// Segment returns the segment with the given code.
func (t Totals) Segment(code string) (TotalSegment, bool) {
	for _, s := range t.Segments {
		if s.Code == code {
			return s, true
		}
	}
	return TotalSegment{}, false
}

func (t Totals) Clone() Totals {
	out := t
	out.Items = append([]TotalsItem(nil), t.Items...)
	out.Segments = append([]TotalSegment(nil), t.Segments...)
	return out
}
