package listing

import (
	"net/url"
	"time"
)

// Listing is one auction lot extracted from the listing page
type Listing struct {
	Index      int    `json:"index"`
	Link       string `json:"link"` // Relative path to the lot's detail page
	Address    string `json:"address"`
	Beds       string `json:"beds"`
	Baths      string `json:"baths"`
	Receptions string `json:"receptions"`
	Price      string `json:"price"`
	Status     string `json:"status"`
}

// Valid reports whether the listing links to a detail page
func (l Listing) Valid() bool {
	return l.Link != ""
}

// URL returns the absolute detail page URL for the listing, with the link
// resolved against base, the page it was found on. It is empty when the
// listing has no link or the link cannot be resolved.
func (l Listing) URL(base string) string {
	if l.Link == "" {
		return ""
	}
	u, err := Resolve(base, l.Link)
	if err != nil {
		return ""
	}
	return u
}

// Resolve turns href, as found on the page at base, into an absolute URL the
// way a browser would.
func Resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(h).String(), nil
}

// DateReference points at the listing page for the current auction
type DateReference struct {
	URL   string `json:"url"`
	Label string `json:"label"` // Display text, not parsed as a date
}

// Batch is the output of one fetch cycle
type Batch struct {
	RunID     string        `json:"run_id"`
	Auction   DateReference `json:"auction"`
	PageURL   string        `json:"page_url"` // Resolved URL the listings were read from
	Listings  []Listing     `json:"listings"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Count returns the number of listings in the batch
func (b *Batch) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Listings)
}
