// Package cli implements the command-line interface for mellor-auctions.
//
// The cli package provides the Cobra-based CLI: list (the default) fetches the
// current auction and prints its lots, locate prints only the auction link, and
// watch repeats the list cycle on a cron schedule. Output can be text, a terminal
// table, JSON or CSV, sorted and filtered on a copy of the fetched batch.
package cli
