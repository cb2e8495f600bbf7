package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pfrederiksen/mellor-auctions/internal/listing"
	"github.com/pfrederiksen/mellor-auctions/internal/logger"
)

const (
	BaseURL   = "https://edwardmellor.co.uk"
	IndexPath = "/auctions/"
)

// Scraper runs the fetch cycle: index page, current auction, listing page
type Scraper struct {
	fetcher   Fetcher
	indexURL  string
	selectors Selectors
	workers   int
	log       *logger.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithIndexURL overrides the auction index page URL.
func WithIndexURL(u string) Option {
	return func(s *Scraper) { s.indexURL = u }
}

// WithSelectors overrides the default selectors.
func WithSelectors(sel Selectors) Option {
	return func(s *Scraper) { s.selectors = sel }
}

// WithWorkers extracts rows on up to n goroutines. n <= 1 keeps it sequential.
func WithWorkers(n int) Option {
	return func(s *Scraper) { s.workers = n }
}

// WithLogger sets the logger. The package default logger is used otherwise.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scraper) { s.log = l }
}

// New creates a Scraper that fetches through f.
func New(f Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:   f,
		indexURL:  BaseURL + IndexPath,
		selectors: DefaultSelectors(),
		workers:   1,
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexURL returns the auction index page URL
func (s *Scraper) IndexURL() string {
	return s.indexURL
}

// Run performs one full cycle. Both fetches happen in sequence; the second URL
// comes from the first page. Any failure aborts the cycle and no partial batch
// is returned.
func (s *Scraper) Run(ctx context.Context) (*listing.Batch, error) {
	runID := uuid.NewString()
	log := s.log.With(logger.Fields{"run_id": runID})

	ref, err := s.locate(ctx, log)
	if err != nil {
		return nil, err
	}

	pageURL, err := s.PageURL(ref)
	if err != nil {
		return nil, err
	}

	listings, err := s.listings(ctx, log, pageURL)
	if err != nil {
		return nil, err
	}

	return &listing.Batch{
		RunID:     runID,
		Auction:   ref,
		PageURL:   pageURL,
		Listings:  listings,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Locate fetches the index page and returns the current auction reference.
func (s *Scraper) Locate(ctx context.Context) (listing.DateReference, error) {
	return s.locate(ctx, s.log)
}

// PageURL resolves ref against the index page it was found on, giving the
// listing page URL Run fetches.
func (s *Scraper) PageURL(ref listing.DateReference) (string, error) {
	u, err := listing.Resolve(s.indexURL, ref.URL)
	if err != nil {
		return "", fmt.Errorf("resolving auction URL %q: %w", ref.URL, err)
	}
	return u, nil
}

// Listings fetches an explicit listing page and extracts it, skipping the
// index page. The batch's Auction carries only the URL.
func (s *Scraper) Listings(ctx context.Context, pageURL string) (*listing.Batch, error) {
	runID := uuid.NewString()
	log := s.log.With(logger.Fields{"run_id": runID})

	listings, err := s.listings(ctx, log, pageURL)
	if err != nil {
		return nil, err
	}

	return &listing.Batch{
		RunID:     runID,
		Auction:   listing.DateReference{URL: pageURL, Label: pageURL},
		PageURL:   pageURL,
		Listings:  listings,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Extract runs extraction on markup that was obtained elsewhere, such as a
// saved page.
func (s *Scraper) Extract(markup string) ([]listing.Listing, error) {
	return s.extract(markup)
}

func (s *Scraper) locate(ctx context.Context, log *logger.Logger) (listing.DateReference, error) {
	body, err := s.fetch(ctx, log, "fetch.index", s.indexURL)
	if err != nil {
		return listing.DateReference{}, err
	}

	ref, err := Locate(string(body), s.selectors)
	if err != nil {
		log.Error("Auction date not found", logger.Fields{"url": s.indexURL}, err)
		return listing.DateReference{}, err
	}

	log.Info("Located auction", logger.Fields{
		"url":   ref.URL,
		"label": ref.Label,
	})
	return ref, nil
}

func (s *Scraper) listings(ctx context.Context, log *logger.Logger, pageURL string) ([]listing.Listing, error) {
	body, err := s.fetch(ctx, log, "fetch.listings", pageURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	listings, err := s.extract(string(body))
	logger.RecordTiming("extract.page", time.Since(start))
	if err != nil {
		log.Error("Listing page could not be parsed", logger.Fields{"url": pageURL}, err)
		return nil, err
	}

	logger.AddCounter("listings.extracted", int64(len(listings)))
	logger.SetGauge("listings.rows", float64(len(listings)))
	if len(listings) == 0 {
		log.Warn("Listing page has no rows", logger.Fields{
			"url":      pageURL,
			"selector": s.selectors.Row,
		})
	}
	log.Info("Extracted listings", logger.Fields{
		"url":   pageURL,
		"count": len(listings),
	})
	return listings, nil
}

func (s *Scraper) extract(markup string) ([]listing.Listing, error) {
	if s.workers > 1 {
		return ExtractAllParallel(markup, s.selectors, s.workers)
	}
	return ExtractAll(markup, s.selectors)
}

func (s *Scraper) fetch(ctx context.Context, log *logger.Logger, timing, u string) ([]byte, error) {
	log.Debug("Fetching page", logger.Fields{"url": u})
	logger.IncrCounter("fetch.requests")

	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, u)
	logger.RecordTiming(timing, time.Since(start))
	if err != nil {
		logger.IncrCounter("fetch.errors")
		log.Error("Fetch failed", logger.Fields{"url": u}, err)
		return nil, err
	}

	log.Debug("Fetched page", logger.Fields{"url": u, "bytes": len(body)})
	return body, nil
}
