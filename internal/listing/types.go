package listing

// Record is the canonical, immutable output row for one listing.
// Price uses "." as the decimal separator with no thousands grouping,
// Currency is a best-effort ISO 4217 code, URL is absolute and
// query-string-free, and Timestamp is the ISO-8601 UTC capture time.
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       string `json:"price,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Status      string `json:"status,omitempty"`
	Category    string `json:"category,omitempty"`
	Tags        string `json:"tags,omitempty"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	SellerName  string `json:"seller_name,omitempty"`
	SellerURL   string `json:"seller_url,omitempty"`
	Timestamp   string `json:"timestamp_utc"`
}

// Columns returns the fixed ordered column list of the canonical schema.
func Columns() []string {
	return []string{
		"id", "title", "price", "currency", "status",
		"category", "tags", "url", "image", "description",
		"seller_name", "seller_url", "timestamp_utc",
	}
}

// Row returns the record's values in Columns() order.
func (r Record) Row() []string {
	return []string{
		r.ID, r.Title, r.Price, r.Currency, r.Status,
		r.Category, r.Tags, r.URL, r.Image, r.Description,
		r.SellerName, r.SellerURL, r.Timestamp,
	}
}

// IsStub reports whether the record carries only its identity fields.
func (r Record) IsStub() bool {
	return r.Title == "" && r.Price == "" && r.Description == ""
}

// Partial holds the optional fields one extraction strategy produced.
// An empty string means the strategy had nothing for that field.
type Partial struct {
	ID          string
	Title       string
	Price       string
	Currency    string
	Status      string
	Category    string
	Tags        string
	URL         string
	Image       string
	Description string
	Brand       string
	Size        string
}

// Merge folds other into p. Fields already populated in p are never
// overwritten; earlier strategies are more trusted.
func (p *Partial) Merge(other Partial) {
	fill(&p.ID, other.ID)
	fill(&p.Title, other.Title)
	fill(&p.Price, other.Price)
	fill(&p.Currency, other.Currency)
	fill(&p.Status, other.Status)
	fill(&p.Category, other.Category)
	fill(&p.Tags, other.Tags)
	fill(&p.URL, other.URL)
	fill(&p.Image, other.Image)
	fill(&p.Description, other.Description)
	fill(&p.Brand, other.Brand)
	fill(&p.Size, other.Size)
}

// IsEmpty reports whether no strategy produced anything at all.
func (p Partial) IsEmpty() bool {
	return p == Partial{}
}

func fill(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}
