package scraper

import (
	"io"
	"strings"
	"sync"

	"github.com/pfrederiksen/mellor-auctions/internal/dom"
	"github.com/pfrederiksen/mellor-auctions/internal/listing"
)

// ExtractAll extracts one Listing per row on the listing page, in page order.
//
// A page with no rows yields an empty slice. Rows with missing sub-elements
// still produce a Listing; the missing fields are left empty. Only markup that
// cannot be parsed at all is an error.
func ExtractAll(listingMarkup string, sel Selectors) ([]listing.Listing, error) {
	return ExtractReader(strings.NewReader(listingMarkup), sel)
}

// ExtractReader is ExtractAll for markup read from r. A read failure is
// reported as a *ParseError.
func ExtractReader(r io.Reader, sel Selectors) ([]listing.Listing, error) {
	rows, err := rowsFrom(r, sel)
	if err != nil {
		return nil, err
	}

	listings := make([]listing.Listing, 0, len(rows))
	for i, row := range rows {
		listings = append(listings, ExtractFragment(row, i+1, sel))
	}
	return listings, nil
}

// ExtractAllParallel is ExtractAll with rows extracted on up to workers
// goroutines. The result is identical to ExtractAll, including order.
func ExtractAllParallel(listingMarkup string, sel Selectors, workers int) ([]listing.Listing, error) {
	if workers <= 1 {
		return ExtractAll(listingMarkup, sel)
	}

	rows, err := rowsFrom(strings.NewReader(listingMarkup), sel)
	if err != nil {
		return nil, err
	}

	// Each row is copied into its own fragment before any goroutine starts so
	// that workers never walk the shared page tree.
	fragments := make([]*dom.Node, len(rows))
	for i, row := range rows {
		fragments[i] = dom.Fragment(row).FirstChild()
	}

	listings := make([]listing.Listing, len(rows))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, frag := range fragments {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, frag *dom.Node) {
			defer wg.Done()
			defer func() { <-sem }()
			listings[i] = ExtractFragment(frag, i+1, sel)
		}(i, frag)
	}
	wg.Wait()

	return listings, nil
}

func rowsFrom(r io.Reader, sel Selectors) ([]*dom.Node, error) {
	tree, err := dom.ParseReader(r)
	if err != nil {
		return nil, &ParseError{Page: "listings", Err: err}
	}
	return tree.QueryAll(sel.Row), nil
}

// ExtractFragment extracts a Listing from one row. index is the row's 1-based
// position on the page. It never fails: absent elements give empty fields.
func ExtractFragment(row *dom.Node, index int, sel Selectors) listing.Listing {
	frag := dom.Fragment(row)

	details := frag.QueryFirst(sel.Details)
	status := frag.QueryFirst(sel.Status)
	price := firstExcept(frag, sel.Price, sel.Status)

	// Counts live in the details block; without one, look across the row.
	countScope := frag
	if details != nil {
		countScope = dom.Fragment(details)
	}

	anchor := details.FirstChild()

	return listing.Listing{
		Index:      index,
		Link:       strings.TrimSpace(anchor.Attr("href")),
		Address:    strings.TrimSpace(anchor.Text()),
		Beds:       markerValue(countScope, sel.BedsMarker),
		Baths:      markerValue(countScope, sel.BathsMarker),
		Receptions: markerValue(countScope, sel.ReceptionsMarker),
		Price:      priceValue(price),
		Status:     strings.TrimSpace(status.FirstChild().Text()),
	}
}

// firstExcept returns the first element matching selector that does not also
// match except. The status block carries every class of the price block, so a
// plain lookup would report a sold lot's status as its price.
func firstExcept(tree *dom.Tree, selector, except string) *dom.Node {
	excluded := tree.QueryAll(except)
	for _, n := range tree.QueryAll(selector) {
		skip := false
		for _, x := range excluded {
			if n.Same(x) {
				skip = true
				break
			}
		}
		if !skip {
			return n
		}
	}
	return nil
}

// markerValue finds the icon marker and returns the trimmed text of the last
// child of the marker's parent, e.g. "3 Beds" in
//
//	<li><i class="lead icon-beds align-middle"></i> 3 Beds</li>
func markerValue(scope *dom.Tree, marker string) string {
	return strings.TrimSpace(scope.QueryFirst(marker).Parent().LastChild().Text())
}

// priceValue reads the price from the price block. The block is taken as a
// tree of its own; the tree's last node is the block, and the price is the
// text of the block's last child.
func priceValue(block *dom.Node) string {
	return strings.TrimSpace(dom.Fragment(block).LastChild().LastChild().Text())
}

// cleanText trims s and collapses internal runs of whitespace to one space.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
