package domain

// LineItem is one product entry of the cart. The JSON shape is the persisted format.
type LineItem struct {
	ID       string  `json:"id" validate:"required"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price" validate:"finite,min=0"`
	Quantity int     `json:"quantity" validate:"min=0"`
}

// Candidate is a product offered to the cart by the UI.
type Candidate struct {
	ID       string  `json:"id" validate:"required"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price" validate:"finite,min=0"`
}

func (c Candidate) LineItem() LineItem {
	return LineItem{
		ID:       c.ID,
		Title:    c.Title,
		ImageURL: c.ImageURL,
		Price:    c.Price,
		Quantity: 1,
	}
}

func (i LineItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
