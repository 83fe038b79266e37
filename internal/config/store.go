package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed store.default.yaml
var defaultStoreRules []byte

// StoreRules configures the commerce engine: currency, carriers, payment methods,
// coupons and tax rates.
type StoreRules struct {
	Store          StoreInfo     `yaml:"store"`
	OrderPrefix    string        `yaml:"order_prefix"`
	Carriers       []Carrier     `yaml:"carriers"`
	PaymentMethods []PaymentRule `yaml:"payment_methods"`
	Coupons        []CouponRule  `yaml:"coupons"`
	Tax            TaxRules      `yaml:"tax"`
}

type StoreInfo struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	BaseCurrency string `yaml:"base_currency"`
}

// Carrier is a shipping carrier with its methods.
type Carrier struct {
	Code      string   `yaml:"code"`
	Title     string   `yaml:"title"`
	Active    bool     `yaml:"active"`
	Countries []string `yaml:"countries"`
	// A carrier with FreeAbove is only offered, at no charge, once the discounted
	// subtotal reaches it.
	FreeAbove decimal.Decimal `yaml:"free_above"`
	Methods   []CarrierMethod `yaml:"methods"`
}

// Rate types.
const (
	RatePerOrder = "per_order"
	RatePerItem  = "per_item"
)

type CarrierMethod struct {
	Code  string          `yaml:"code"`
	Title string          `yaml:"title"`
	Price decimal.Decimal `yaml:"price"`
	Type  string          `yaml:"type"`
}

// PaymentRule describes a payment method and where it may be used.
type PaymentRule struct {
	Code           string          `yaml:"code"`
	Title          string          `yaml:"title"`
	Active         bool            `yaml:"active"`
	Gateway        bool            `yaml:"gateway"`
	CanUseInternal bool            `yaml:"can_use_internal"`
	Recurring      bool            `yaml:"recurring"`
	Countries      []string        `yaml:"countries"`
	Currencies     []string        `yaml:"currencies"`
	MinOrderTotal  decimal.Decimal `yaml:"min_order_total"`
	MaxOrderTotal  decimal.Decimal `yaml:"max_order_total"`
	// Decline makes the gateway refuse every authorisation. Used by demo stores.
	Decline bool `yaml:"decline"`
}

// Coupon types.
const (
	CouponPercent = "percent"
	CouponFixed   = "fixed"
)

type CouponRule struct {
	Code         string          `yaml:"code"`
	Type         string          `yaml:"type"`
	Amount       decimal.Decimal `yaml:"amount"`
	MinSubtotal  decimal.Decimal `yaml:"min_subtotal"`
	FreeShipping bool            `yaml:"free_shipping"`
	Active       bool            `yaml:"active"`
}

type TaxRules struct {
	ApplyToShipping bool      `yaml:"apply_to_shipping"`
	Rates           []TaxRate `yaml:"rates"`
}

type TaxRate struct {
	Country string          `yaml:"country"`
	Percent decimal.Decimal `yaml:"percent"`
}

// LoadStoreRules reads rules from path, or the embedded defaults when path is empty.
func LoadStoreRules(path string) (StoreRules, error) {
	data := defaultStoreRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return StoreRules{}, fmt.Errorf("read store rules: %w", err)
		}
	}
	return ParseStoreRules(data)
}

// ParseStoreRules decodes and validates a YAML rules document.
func ParseStoreRules(data []byte) (StoreRules, error) {
	var rules StoreRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return StoreRules{}, fmt.Errorf("decode store rules: %w", err)
	}
	if err := rules.validate(); err != nil {
		return StoreRules{}, err
	}
	return rules, nil
}

func (r *StoreRules) validate() error {
	if r.Store.Code == "" {
		r.Store.Code = "default"
	}
	if r.Store.BaseCurrency == "" {
		return fmt.Errorf("store rules: base_currency is required")
	}
	r.Store.BaseCurrency = strings.ToUpper(r.Store.BaseCurrency)
	for i, c := range r.Carriers {
		if c.Code == "" || len(c.Methods) == 0 {
			return fmt.Errorf("store rules: carrier %d needs a code and at least one method", i)
		}
		if strings.Contains(c.Code, "_") {
			return fmt.Errorf("store rules: carrier code %q must not contain '_'", c.Code)
		}
		for j, m := range c.Methods {
			if m.Type == "" {
				r.Carriers[i].Methods[j].Type = RatePerOrder
			} else if m.Type != RatePerOrder && m.Type != RatePerItem {
				return fmt.Errorf("store rules: carrier %s method %s has unknown type %q", c.Code, m.Code, m.Type)
			}
		}
	}
	for i, c := range r.Coupons {
		if c.Type != CouponPercent && c.Type != CouponFixed {
			return fmt.Errorf("store rules: coupon %q has unknown type %q", c.Code, c.Type)
		}
		r.Coupons[i].Code = strings.TrimSpace(c.Code)
	}
	for _, p := range r.PaymentMethods {
		if p.Code == "" {
			return fmt.Errorf("store rules: payment method without code")
		}
	}
	return nil
}
