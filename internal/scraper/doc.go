// Package scraper finds the current auction on edwardmellor.co.uk and extracts its listings.
//
// A fetch cycle has two steps. Locate reads the auction index page and returns the
// link behind the first "view auction" button. ExtractAll reads the listing page that
// link points to and turns every listing row into a listing.Listing. Rows are loosely
// structured and often incomplete (sold lots have no price, commercial lots no bedroom
// count), so extraction never fails on a missing element; it leaves the field empty.
//
// The selectors that tie the code to the site's markup are constants in selectors.go
// and can be overridden from a YAML file.
package scraper
