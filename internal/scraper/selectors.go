package scraper

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// CSS selectors for edwardmellor.co.uk. They are the contract with the site's
// markup; when the site changes, change them here or override them with a
// YAML file (see LoadSelectors).
const (
	// Auction index page: the "view auction" button for the current date.
	AuctionLinkSelector = ".btn.btn-primary.mt-3"
	// Alternative index layout seen on the site, a button inside a flex column.
	AuctionLinkFlexSelector = ".d-flex.flex-column a.btn"
	// Date heading next to the auction button.
	AuctionDateSelector = "h3, h4, .auction-date"

	// Listing page: one row per lot.
	RowSelector = ".row.py-2"

	// Inside a row.
	DetailsSelector = ".col-9.col-md-5"
	PriceSelector   = ".mt-2.mt-md-0.col-6.col-md-2"
	StatusSelector  = ".mt-2.mt-md-0.col-6.col-md-2.align-items-center"

	// Icon markers inside the details block. The count is the last child of
	// the marker's parent.
	BedsMarkerSelector       = ".lead.icon-beds.align-middle"
	BathsMarkerSelector      = ".lead.icon-baths.align-middle"
	ReceptionsMarkerSelector = ".lead.icon-receptions.align-middle"
)

// Selectors is the full set of selectors used by Locate and ExtractAll
type Selectors struct {
	AuctionLink      string `yaml:"auction_link"`
	AuctionFallback  string `yaml:"auction_link_fallback"` // Optional, tried only when AuctionLink matches nothing
	AuctionDate      string `yaml:"auction_date"`
	Row              string `yaml:"row"`
	Details          string `yaml:"details"`
	Price            string `yaml:"price"`
	Status           string `yaml:"status"`
	BedsMarker       string `yaml:"beds_marker"`
	BathsMarker      string `yaml:"baths_marker"`
	ReceptionsMarker string `yaml:"receptions_marker"`
}

// DefaultSelectors returns the selectors for the current site markup.
func DefaultSelectors() Selectors {
	return Selectors{
		AuctionLink:      AuctionLinkSelector,
		AuctionFallback:  AuctionLinkFlexSelector,
		AuctionDate:      AuctionDateSelector,
		Row:              RowSelector,
		Details:          DetailsSelector,
		Price:            PriceSelector,
		Status:           StatusSelector,
		BedsMarker:       BedsMarkerSelector,
		BathsMarker:      BathsMarkerSelector,
		ReceptionsMarker: ReceptionsMarkerSelector,
	}
}

// LoadSelectors reads a YAML file and overlays any selectors it sets on top of
// the defaults. Keys left out of the file keep their default value.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("reading selectors: %w", err)
	}

	var override Selectors
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parsing selectors: %w", err)
	}

	sel = sel.Merge(override)
	if err := sel.Validate(); err != nil {
		return sel, err
	}
	return sel, nil
}

// Merge returns s with every non-empty field of o applied on top.
func (s Selectors) Merge(o Selectors) Selectors {
	pick := func(cur, next string) string {
		if next != "" {
			return next
		}
		return cur
	}
	return Selectors{
		AuctionLink:      pick(s.AuctionLink, o.AuctionLink),
		AuctionFallback:  pick(s.AuctionFallback, o.AuctionFallback),
		AuctionDate:      pick(s.AuctionDate, o.AuctionDate),
		Row:              pick(s.Row, o.Row),
		Details:          pick(s.Details, o.Details),
		Price:            pick(s.Price, o.Price),
		Status:           pick(s.Status, o.Status),
		BedsMarker:       pick(s.BedsMarker, o.BedsMarker),
		BathsMarker:      pick(s.BathsMarker, o.BathsMarker),
		ReceptionsMarker: pick(s.ReceptionsMarker, o.ReceptionsMarker),
	}
}

// Validate checks that every required selector is set and that all of them
// compile.
func (s Selectors) Validate() error {
	if s.AuctionFallback != "" {
		if _, err := cascadia.Compile(s.AuctionFallback); err != nil {
			return fmt.Errorf("selector auction_link_fallback (%q): %w", s.AuctionFallback, err)
		}
	}

	fields := []struct {
		name  string
		value string
	}{
		{"auction_link", s.AuctionLink},
		{"auction_date", s.AuctionDate},
		{"row", s.Row},
		{"details", s.Details},
		{"price", s.Price},
		{"status", s.Status},
		{"beds_marker", s.BedsMarker},
		{"baths_marker", s.BathsMarker},
		{"receptions_marker", s.ReceptionsMarker},
	}

	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("selector %s is empty", f.name)
		}
		if _, err := cascadia.Compile(f.value); err != nil {
			return fmt.Errorf("selector %s (%q): %w", f.name, f.value, err)
		}
	}
	return nil
}
