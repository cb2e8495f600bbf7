package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pfrederiksen/mellor-auctions/internal/listing"
	"github.com/pfrederiksen/mellor-auctions/internal/logger"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

// ParseOutputFormat validates a --format value
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, true
	case FormatText, FormatTable, FormatJSON, FormatCSV:
		return f, true
	default:
		return "", false
	}
}

// OutputListing is a listing with its detail page link made absolute
type OutputListing struct {
	listing.Listing
	URL string `json:"url"`
}

// OutputResult contains data to be output
type OutputResult struct {
	RunID        string                `json:"run_id"`
	Auction      listing.DateReference `json:"auction"`
	PageURL      string                `json:"page_url"`
	FetchedAt    time.Time             `json:"fetched_at"`
	Listings     []OutputListing       `json:"listings"`
	ListingCount int                   `json:"listing_count"`
	TotalCount   int                   `json:"total_count"`
	Search       string                `json:"search,omitempty"`
	SortOrder    SortOrder             `json:"sort,omitempty"`
}

// ViewOptions controls what the renderer shows. The batch itself is never
// modified. BaseURL resolves links only when the batch has no PageURL.
type ViewOptions struct {
	BaseURL string
	Sort    SortOrder
	Search  string
}

// NewOutputResult filters and sorts a copy of the batch's listings for display
func NewOutputResult(batch *listing.Batch, opts ViewOptions) *OutputResult {
	result := &OutputResult{
		Listings:  []OutputListing{},
		Search:    strings.TrimSpace(opts.Search),
		SortOrder: opts.Sort,
	}
	if batch == nil {
		return result
	}

	result.RunID = batch.RunID
	result.Auction = batch.Auction
	result.PageURL = batch.PageURL
	result.FetchedAt = batch.FetchedAt
	result.TotalCount = batch.Count()

	// Links resolve against the listing page; a saved file has none.
	base := batch.PageURL
	if base == "" {
		base = opts.BaseURL
	}

	view := make([]listing.Listing, len(batch.Listings))
	copy(view, batch.Listings)
	view = filterListings(view, opts.Search)
	sortListings(view, opts.Sort)

	for _, l := range view {
		result.Listings = append(result.Listings, OutputListing{
			Listing: l,
			URL:     l.URL(opts.BaseURL),
		})
	}
	result.ListingCount = len(result.Listings)
	return result
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatTable:
		return writeTable(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.Auction.Label != "" {
		fmt.Fprintf(w, "Auction: %s\n", result.Auction.Label)
	}
	if result.PageURL != "" {
		fmt.Fprintf(w, "Page: %s\n", result.PageURL)
	}

	if result.ListingCount == 0 {
		if result.Search != "" {
			fmt.Fprintf(w, "No listings matching %q.\n", result.Search)
		} else {
			fmt.Fprintln(w, "No listings found.")
		}
		return nil
	}

	fmt.Fprintln(w)
	for _, l := range result.Listings {
		address := l.Address
		if address == "" {
			address = "(no address)"
		}
		fmt.Fprintf(w, "#%d %s", l.Index, address)
		if l.Price != "" {
			fmt.Fprintf(w, " - %s", l.Price)
		}
		if l.Status != "" {
			fmt.Fprintf(w, " [%s]", l.Status)
		}
		if !l.Valid() {
			fmt.Fprint(w, " (no link)")
		}
		fmt.Fprintln(w)

		if verbose {
			if rooms := roomSummary(l.Listing); rooms != "" {
				fmt.Fprintf(w, "     Rooms: %s\n", rooms)
			}
			if l.URL != "" {
				fmt.Fprintf(w, "     Link: %s\n", l.URL)
			}
		}
	}

	if result.ListingCount != result.TotalCount {
		fmt.Fprintf(w, "\nTotal: %d of %d listings\n", result.ListingCount, result.TotalCount)
	} else {
		fmt.Fprintf(w, "\nTotal: %d listings\n", result.ListingCount)
	}
	return nil
}

func roomSummary(l listing.Listing) string {
	var parts []string
	if l.Beds != "" {
		parts = append(parts, "beds "+l.Beds)
	}
	if l.Baths != "" {
		parts = append(parts, "baths "+l.Baths)
	}
	if l.Receptions != "" {
		parts = append(parts, "receptions "+l.Receptions)
	}
	return strings.Join(parts, ", ")
}

// noLink fills the link cell of a listing without a detail page
const noLink = "(no link)"

var tableHeaders = []string{"#", "Address", "Beds", "Baths", "Receptions", "Price", "Status", "Link"}

// writeTable renders the listings as a bordered terminal table
func writeTable(w io.Writer, result *OutputResult) error {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tableHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, l := range result.Listings {
		record := tableRecord(l)
		if !l.Valid() {
			record[len(record)-1] = noLink
		}
		t.Row(record...)
	}

	if result.Auction.Label != "" {
		fmt.Fprintln(w, result.Auction.Label)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

var csvHeader = []string{"index", "address", "beds", "baths", "receptions", "price", "status", "url"}

// writeCSV writes one record per listing after a header row
func writeCSV(w io.Writer, result *OutputResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, l := range result.Listings {
		if err := cw.Write(tableRecord(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func tableRecord(l OutputListing) []string {
	return []string{
		strconv.Itoa(l.Index),
		l.Address,
		l.Beds,
		l.Baths,
		l.Receptions,
		l.Price,
		l.Status,
		l.URL,
	}
}

// writeLocate prints the located auction
func writeLocate(w io.Writer, ref listing.DateReference, pageURL string, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			listing.DateReference
			PageURL string `json:"page_url"`
		}{ref, pageURL})
	}
	fmt.Fprintf(w, "Auction: %s\n", ref.Label)
	fmt.Fprintf(w, "Page: %s\n", pageURL)
	return nil
}

// writeMetrics prints the run metrics, one per line
func writeMetrics(w io.Writer, snap logger.Snapshot) {
	fmt.Fprintln(w, "Metrics:")
	for _, name := range snap.Names() {
		if v, ok := snap.Counters[name]; ok {
			fmt.Fprintf(w, "  %s: %d\n", name, v)
		}
		if v, ok := snap.Gauges[name]; ok {
			fmt.Fprintf(w, "  %s: %g\n", name, v)
		}
		if st, ok := snap.Timings[name]; ok {
			fmt.Fprintf(w, "  %s: %d calls, avg %s, max %s\n", name, st.Count, st.Average, st.Max)
		}
	}
}
