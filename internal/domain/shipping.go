package domain

import "encoding/json"

// ShippingRate is one carrier method offered for a cart. On the wire method_code and
// code carry the composed carrier_method code; method is the carrier's own code.
type ShippingRate struct {
	CarrierCode  string `json:"carrier_code"`
	Method       string `json:"method"`
	CarrierTitle string `json:"carrier_title"`
	MethodTitle  string `json:"method_title"`
	Amount       Money  `json:"amount"`
	Price        Money  `json:"price"`
	Available    bool   `json:"available"`
	ErrorMessage string `json:"error_message"`
}

func (r ShippingRate) MarshalJSON() ([]byte, error) {
	type plain ShippingRate
	return json.Marshal(struct {
		plain
		MethodCode string `json:"method_code"`
		Code       string `json:"code"`
	}{plain: plain(r), MethodCode: r.Code(), Code: r.Code()})
}

// Code is the effective shipping method code stored on the cart.
func (r ShippingRate) Code() string {
	return ShippingMethodCode(r.CarrierCode, r.Method)
}

// ShippingMethodCode composes the carrier and method into "carrier_method".
func ShippingMethodCode(carrier, method string) string {
	return carrier + "_" + method
}

// PaymentMethod is a payment option available to a cart.
type PaymentMethod struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}
