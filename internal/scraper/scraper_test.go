package scraper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/mellor-auctions/internal/listing"
	"github.com/pfrederiksen/mellor-auctions/internal/logger"
)

// stubFetcher serves canned pages by URL and records every request.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, &FetchError{URL: url, StatusCode: http.StatusNotFound}
	}
	return []byte(page), nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.LevelError, io.Discard)
}

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	index := loadFixture(t, "index.html")
	listings := loadFixture(t, "listings.html")

	mux := http.NewServeMux()
	mux.HandleFunc("/auctions/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auctions/":
			w.Write([]byte(index))
		case "/auctions/2024-06-12/":
			w.Write([]byte(listings))
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(mux)
}

func TestScraper_Run(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	s := New(NewHTTPFetcher(5*time.Second, ""),
		WithIndexURL(server.URL+"/auctions/"),
		WithLogger(quietLogger()),
	)

	before := time.Now().UTC()
	batch, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, "/auctions/2024-06-12/", batch.Auction.URL)
	assert.Equal(t, "Wednesday 12th June 2024", batch.Auction.Label)
	assert.Equal(t, server.URL+"/auctions/2024-06-12/", batch.PageURL)
	assert.Equal(t, 4, batch.Count())
	assert.False(t, batch.FetchedAt.Before(before))

	first := batch.Listings[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "123 High Street, Liverpool, L1 1AA", first.Address)
	assert.Equal(t, "£85,000+", first.Price)
}

func TestScraper_RunParallelMatchesSequential(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, "")
	seq, err := New(fetcher, WithIndexURL(server.URL+"/auctions/"), WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)
	par, err := New(fetcher, WithIndexURL(server.URL+"/auctions/"), WithLogger(quietLogger()), WithWorkers(4)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seq.Listings, par.Listings)
	assert.NotEqual(t, seq.RunID, par.RunID)
}

func TestScraper_RunFailures(t *testing.T) {
	const indexURL = "https://example.test/auctions/"
	const pageURL = "https://example.test/auctions/2024-06-12/"

	tests := []struct {
		name      string
		fetcher   *stubFetcher
		wantCalls int
		check     func(t *testing.T, err error)
	}{
		{
			name: "index page unavailable",
			fetcher: &stubFetcher{
				errs: map[string]error{indexURL: &FetchError{URL: indexURL, StatusCode: http.StatusBadGateway}},
			},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var fe *FetchError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
			},
		},
		{
			name: "no auction on index page",
			fetcher: &stubFetcher{
				pages: map[string]string{indexURL: `<html><body><p>No auctions scheduled</p></body></html>`},
			},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var nf *NotFoundError
				require.ErrorAs(t, err, &nf)
			},
		},
		{
			name: "listing page unavailable",
			fetcher: &stubFetcher{
				pages: map[string]string{indexURL: `<a class="btn btn-primary mt-3" href="/auctions/2024-06-12/">View</a>`},
				errs:  map[string]error{pageURL: &FetchError{URL: pageURL, Err: errors.New("connection reset")}},
			},
			wantCalls: 2,
			check: func(t *testing.T, err error) {
				var fe *FetchError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, pageURL, fe.URL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.fetcher, WithIndexURL(indexURL), WithLogger(quietLogger()))

			batch, err := s.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, batch)
			assert.Len(t, tt.fetcher.calls, tt.wantCalls)
			tt.check(t, err)
		})
	}
}

func TestScraper_RunResolvesAbsoluteHref(t *testing.T) {
	const indexURL = "https://example.test/auctions/"
	const pageURL = "https://cdn.example.test/catalogue/june/"

	f := &stubFetcher{pages: map[string]string{
		indexURL: `<a class="btn btn-primary mt-3" href="` + pageURL + `">June</a>`,
		pageURL:  `<div class="row py-2"><div class="col-9 col-md-5"><a href="/p/1/">1 Main St</a></div></div>`,
	}}

	batch, err := New(f, WithIndexURL(indexURL), WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{indexURL, pageURL}, f.calls)
	assert.Equal(t, pageURL, batch.PageURL)
	assert.Equal(t, 1, batch.Count())
}

func TestScraper_Locate(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	s := New(NewHTTPFetcher(5*time.Second, ""), WithIndexURL(server.URL+"/auctions/"), WithLogger(quietLogger()))
	ref, err := s.Locate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/auctions/2024-06-12/", ref.URL)
	assert.Equal(t, "Wednesday 12th June 2024", ref.Label)
}

func TestScraper_Listings(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	pageURL := server.URL + "/auctions/2024-06-12/"
	s := New(NewHTTPFetcher(5*time.Second, ""), WithLogger(quietLogger()))

	batch, err := s.Listings(context.Background(), pageURL)
	require.NoError(t, err)

	assert.Equal(t, pageURL, batch.PageURL)
	assert.Equal(t, pageURL, batch.Auction.URL)
	assert.Equal(t, 4, batch.Count())
}

func TestScraper_Extract(t *testing.T) {
	s := New(&stubFetcher{}, WithWorkers(3))

	listings, err := s.Extract(loadFixture(t, "listings.html"))
	require.NoError(t, err)
	assert.Len(t, listings, 4)
}

func TestScraper_Defaults(t *testing.T) {
	s := New(&stubFetcher{})
	assert.Equal(t, "https://edwardmellor.co.uk/auctions/", s.IndexURL())
}

func TestScraper_RecordsMetrics(t *testing.T) {
	logger.ResetMetrics()
	defer logger.ResetMetrics()

	server := newSiteServer(t)
	defer server.Close()

	_, err := New(NewHTTPFetcher(5*time.Second, ""), WithIndexURL(server.URL+"/auctions/"), WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)

	snap := logger.GetMetricsSnapshot()
	assert.Equal(t, int64(2), snap.Counters["fetch.requests"])
	assert.Equal(t, int64(4), snap.Counters["listings.extracted"])
	assert.Equal(t, 1, snap.Timings["fetch.index"].Count)
	assert.Equal(t, 1, snap.Timings["fetch.listings"].Count)
	assert.Equal(t, 1, snap.Timings["extract.page"].Count)
	assert.Equal(t, float64(4), snap.Gauges["listings.rows"])
}

func TestScraper_LogsRunID(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	var buf bytes.Buffer
	s := New(NewHTTPFetcher(5*time.Second, ""), WithIndexURL(server.URL+"/auctions/"), WithLogger(logger.New(logger.LevelInfo, &buf)))

	batch, err := s.Run(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Located auction")
	assert.Contains(t, out, "Extracted listings")
	assert.Equal(t, 2, strings.Count(out, batch.RunID))
}

func TestScraper_PageURL(t *testing.T) {
	s := New(&stubFetcher{}, WithIndexURL("https://example.test/auctions/"))

	tests := []struct {
		href string
		want string
	}{
		{"/auctions/2024-06-12/", "https://example.test/auctions/2024-06-12/"},
		{"2024-06-12/", "https://example.test/auctions/2024-06-12/"},
		{"https://cdn.example.test/june/", "https://cdn.example.test/june/"},
	}
	for _, tt := range tests {
		got, err := s.PageURL(listing.DateReference{URL: tt.href})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "href %q", tt.href)
	}

	_, err := s.PageURL(listing.DateReference{URL: "http://[::1"})
	assert.Error(t, err)
}

func TestScraper_RunRelativeHrefMatchesPageURL(t *testing.T) {
	const indexURL = "https://example.test/auctions/"
	const pageURL = "https://example.test/auctions/2024-06-12/"

	f := &stubFetcher{pages: map[string]string{
		indexURL: `<a class="btn btn-primary mt-3" href="2024-06-12/">June</a>`,
		pageURL:  `<div class="row py-2"></div>`,
	}}
	s := New(f, WithIndexURL(indexURL), WithLogger(quietLogger()))

	batch, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pageURL, batch.PageURL)

	ref, err := s.Locate(context.Background())
	require.NoError(t, err)
	located, err := s.PageURL(ref)
	require.NoError(t, err)
	assert.Equal(t, batch.PageURL, located)
}

func TestScraper_WarnsOnEmptyPage(t *testing.T) {
	const pageURL = "https://example.test/auctions/2024-06-12/"
	f := &stubFetcher{pages: map[string]string{pageURL: `<html><body><p>Catalogue coming soon</p></body></html>`}}

	var buf bytes.Buffer
	s := New(f, WithLogger(logger.New(logger.LevelWarn, &buf)))

	batch, err := s.Listings(context.Background(), pageURL)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Count())

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "Listing page has no rows")
	assert.Contains(t, out, RowSelector)
}
