package domain

// Address types.
const (
	AddressTypeShipping = "shipping"
	AddressTypeBilling  = "billing"
)

// Address is used for cart shipping/billing addresses and the customer address book.
type Address struct {
	ID              string   `json:"id,omitempty"`
	Type            string   `json:"address_type,omitempty"`
	Firstname       string   `json:"firstname"`
	Lastname        string   `json:"lastname"`
	Company         string   `json:"company,omitempty"`
	Email           string   `json:"email,omitempty"`
	Street          []string `json:"street"`
	City            string   `json:"city"`
	Region          string   `json:"region,omitempty"`
	RegionCode      string   `json:"region_code,omitempty"`
	CountryID       string   `json:"country_id"`
	Postcode        string   `json:"postcode"`
	Telephone       string   `json:"telephone,omitempty"`
	DefaultBilling  bool     `json:"default_billing,omitempty"`
	DefaultShipping bool     `json:"default_shipping,omitempty"`
}

func (a Address) Clone() Address {
	out := a
	out.Street = append([]string(nil), a.Street...)
	return out
}
