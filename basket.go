package x402

// BasketItem is a descriptive line item attached to a 402 challenge.
type BasketItem struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Price     string                 `json:"price"`
	Quantity  int                    `json:"quantity,omitempty"`
	Tax       string                 `json:"tax,omitempty"`
	Discount  string                 `json:"discount,omitempty"`
	ImageURLs []string               `json:"image_urls,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Basket is the list of line items for a priced route.
type Basket []BasketItem
