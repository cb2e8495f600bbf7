// Package listing defines the records produced by one scrape of the auction site.
//
// A Listing is a single lot as shown on the current auction page. All of its fields
// are free text taken from the page; counts and prices are deliberately left unparsed
// because the site formats them inconsistently ("3", "3+", "£100,000 - £120,000").
// A missing value is an empty string, never an error.
package listing
