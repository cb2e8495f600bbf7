package cli

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pfrederiksen/mellor-auctions/internal/listing"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByIndex   SortOrder = "index"
	SortByAddress SortOrder = "address"
	SortByPrice   SortOrder = "price"
	SortByBeds    SortOrder = "beds"
	SortByStatus  SortOrder = "status"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, bool) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortByIndex, true
	case SortByIndex, SortByAddress, SortByPrice, SortByBeds, SortByStatus:
		return o, true
	default:
		return "", false
	}
}

// sortListings sorts listings in place. Ties, and listings without a value
// for the sort key, fall back to page order.
func sortListings(listings []listing.Listing, order SortOrder) {
	switch order {
	case SortByAddress:
		sort.SliceStable(listings, func(i, j int) bool {
			return compareText(listings[i].Address, listings[j].Address, listings[i].Index, listings[j].Index)
		})
	case SortByStatus:
		sort.SliceStable(listings, func(i, j int) bool {
			return compareText(listings[i].Status, listings[j].Status, listings[i].Index, listings[j].Index)
		})
	case SortByPrice:
		sort.SliceStable(listings, func(i, j int) bool {
			return compareNumber(leadingNumber(listings[i].Price), leadingNumber(listings[j].Price), listings[i].Index, listings[j].Index)
		})
	case SortByBeds:
		sort.SliceStable(listings, func(i, j int) bool {
			return compareNumber(leadingNumber(listings[i].Beds), leadingNumber(listings[j].Beds), listings[i].Index, listings[j].Index)
		})
	default:
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].Index < listings[j].Index
		})
	}
}

// compareText orders case-insensitively with empty values last
func compareText(a, b string, ia, ib int) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return ia < ib
	}
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	return a < b
}

// compareNumber orders ascending; -1 means no value and sorts last
func compareNumber(a, b int64, ia, ib int) bool {
	if a == b {
		return ia < ib
	}
	if a < 0 {
		return false
	}
	if b < 0 {
		return true
	}
	return a < b
}

// leadingNumber returns the first number in s with thousands separators
// removed, e.g. 85000 for "£85,000+" and 3 for "3 Beds". It returns -1 when
// s has no digits.
func leadingNumber(s string) int64 {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return -1
	}

	var b strings.Builder
	for _, r := range s[start:] {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		} else if r != ',' {
			break
		}
	}

	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// filterListings keeps listings whose address or status contains query,
// case-insensitively. An empty query keeps everything.
func filterListings(listings []listing.Listing, query string) []listing.Listing {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return listings
	}

	filtered := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Address), query) ||
			strings.Contains(strings.ToLower(l.Status), query) {
			filtered = append(filtered, l)
		}
	}
	return filtered
}
