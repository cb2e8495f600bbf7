// Package dom is a small query layer over goquery.
//
// It exposes the handful of operations the scraper needs (parse, select all,
// select first, first/last child, parent, text, attribute) and nothing else.
// Every accessor tolerates a nil receiver so that a chain such as
// marker.Parent().LastChild().Text() simply yields "" when any hop is absent.
package dom
