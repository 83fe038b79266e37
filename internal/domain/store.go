package domain

import "time"

// DefaultStoreCode is used when a request names no store.
const DefaultStoreCode = "default"

// Store is a storefront view with its own currency.
type Store struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"base_currency_code"`
	CreatedAt    time.Time `json:"created_at"`
}
