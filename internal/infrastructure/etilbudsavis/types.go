package etilbudsavis

// Offer is one flyer offer as returned by /v2/offers/search.
// Only the fields the adapter reads are decoded.
type Offer struct {
	ID          string   `json:"id"`
	Heading     string   `json:"heading"`
	Description string   `json:"description"`
	CatalogID   string   `json:"catalog_id"`
	RunFrom     string   `json:"run_from"`
	RunTill     string   `json:"run_till"`
	Pricing     Pricing  `json:"pricing"`
	Quantity    Quantity `json:"quantity"`
	Dealer      *Dealer  `json:"dealer,omitempty"`
	Branding    *Dealer  `json:"branding,omitempty"`
}

// Pricing is the offer price block
type Pricing struct {
	Price    float64  `json:"price"`
	PrePrice *float64 `json:"pre_price"`
}

// Quantity describes package size: size (per pack) times pieces (packs)
type Quantity struct {
	Unit   *Unit `json:"unit"`
	Size   Range `json:"size"`
	Pieces Range `json:"pieces"`
}

// Unit is the package unit symbol with its SI conversion
type Unit struct {
	Symbol string `json:"symbol"`
	SI     struct {
		Symbol string  `json:"symbol"`
		Factor float64 `json:"factor"`
	} `json:"si"`
}

// Range is a from/to pair; a fixed value has from == to or only from
type Range struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Value returns To when set, else From
func (r Range) Value() float64 {
	if r.To > 0 {
		return r.To
	}
	return r.From
}

// Dealer is the chain behind the offer
type Dealer struct {
	Name    string   `json:"name"`
	Markets []Market `json:"markets"`
}

// Market carries the public slug used in catalog links
type Market struct {
	Slug string `json:"slug"`
}
