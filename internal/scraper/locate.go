package scraper

import (
	"strings"

	"github.com/pfrederiksen/mellor-auctions/internal/dom"
	"github.com/pfrederiksen/mellor-auctions/internal/listing"
)

// Locate finds the current auction's listing page on the auction index page.
//
// The first control matching sel.AuctionLink in document order wins; the site
// lists the current auction first, so no date comparison is done. When the
// primary selector matches nothing, sel.AuctionFallback (if set) is tried.
// A page without any such control yields a *NotFoundError.
func Locate(indexMarkup string, sel Selectors) (listing.DateReference, error) {
	tree, err := dom.Parse(indexMarkup)
	if err != nil {
		return listing.DateReference{}, &ParseError{Page: "index", Err: err}
	}
	return locateIn(tree, sel)
}

func locateIn(tree *dom.Tree, sel Selectors) (listing.DateReference, error) {
	control := tree.QueryFirst(sel.AuctionLink)
	if control == nil && sel.AuctionFallback != "" {
		control = tree.QueryFirst(sel.AuctionFallback)
	}

	href := strings.TrimSpace(control.Attr("href"))
	if href == "" {
		return listing.DateReference{}, &NotFoundError{Selector: sel.AuctionLink, Fallback: sel.AuctionFallback}
	}

	return listing.DateReference{
		URL:   href,
		Label: auctionLabel(control, sel, href),
	}, nil
}

// auctionLabel prefers a date heading beside the control, then the control's
// own text, then the URL itself.
func auctionLabel(control *dom.Node, sel Selectors, href string) string {
	if sel.AuctionDate != "" {
		siblings := dom.Fragment(control.Parent())
		if label := cleanText(siblings.QueryFirst(sel.AuctionDate).Text()); label != "" {
			return label
		}
	}
	if label := cleanText(control.Text()); label != "" {
		return label
	}
	return href
}
