package scraper

import (
	"errors"
	"testing"

	"github.com/pfrederiksen/mellor-auctions/internal/listing"
)

func TestLocate_Fixture(t *testing.T) {
	ref, err := Locate(loadFixture(t, "index.html"), DefaultSelectors())
	if err != nil {
		t.Fatalf("Locate() unexpected error: %v", err)
	}

	want := listing.DateReference{
		URL:   "/auctions/2024-06-12/",
		Label: "Wednesday 12th June 2024",
	}
	if ref != want {
		t.Errorf("Locate() = %+v, want %+v", ref, want)
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantURL   string
		wantLabel string
		wantErr   bool
	}{
		{
			name:      "single control",
			html:      `<a class="btn btn-primary mt-3" href="/auctions/2024-06-12/">12 June 2024</a>`,
			wantURL:   "/auctions/2024-06-12/",
			wantLabel: "12 June 2024",
		},
		{
			name: "first of several wins regardless of date",
			html: `
				<div><a class="btn btn-primary mt-3" href="/auctions/2024-09-01/">1 September</a></div>
				<div><a class="btn btn-primary mt-3" href="/auctions/2024-06-12/">12 June</a></div>`,
			wantURL:   "/auctions/2024-09-01/",
			wantLabel: "1 September",
		},
		{
			name: "sibling date label preferred over button text",
			html: `
				<div class="card">
					<h4>
						Tuesday 2nd July
					</h4>
					<a class="btn btn-primary mt-3" href="/auctions/2024-07-02/">View lots</a>
				</div>`,
			wantURL:   "/auctions/2024-07-02/",
			wantLabel: "Tuesday 2nd July",
		},
		{
			name:      "label falls back to URL",
			html:      `<a class="btn btn-primary mt-3" href="https://edwardmellor.co.uk/auctions/2024-08-08/"> </a>`,
			wantURL:   "https://edwardmellor.co.uk/auctions/2024-08-08/",
			wantLabel: "https://edwardmellor.co.uk/auctions/2024-08-08/",
		},
		{
			name: "flex layout fallback",
			html: `
				<div class="d-flex flex-column">
					<span class="auction-date">Friday 9th August</span>
					<a class="btn btn-outline" href="/auctions/2024-08-09/">Lots</a>
				</div>`,
			wantURL:   "/auctions/2024-08-09/",
			wantLabel: "Friday 9th August",
		},
		{
			name:    "button without mt-3 does not match",
			html:    `<a class="btn btn-primary" href="/valuation/">Book a valuation</a>`,
			wantErr: true,
		},
		{
			name:    "control without href",
			html:    `<button class="btn btn-primary mt-3">Coming soon</button>`,
			wantErr: true,
		},
		{
			name:    "empty page",
			html:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Locate(tt.html, DefaultSelectors())

			if tt.wantErr {
				var nf *NotFoundError
				if !errors.As(err, &nf) {
					t.Fatalf("Locate() error = %v, want *NotFoundError", err)
				}
				if ref != (listing.DateReference{}) {
					t.Errorf("Locate() returned %+v alongside an error", ref)
				}
				return
			}

			if err != nil {
				t.Fatalf("Locate() unexpected error: %v", err)
			}
			if ref.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", ref.URL, tt.wantURL)
			}
			if ref.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", ref.Label, tt.wantLabel)
			}
		})
	}
}

func TestLocate_NoFallbackConfigured(t *testing.T) {
	sel := DefaultSelectors()
	sel.AuctionFallback = ""

	html := `<div class="d-flex flex-column"><a class="btn" href="/auctions/2024-08-09/">Lots</a></div>`
	_, err := Locate(html, sel)

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Locate() error = %v, want *NotFoundError", err)
	}
	if nf.Selector != AuctionLinkSelector {
		t.Errorf("Selector = %q, want %q", nf.Selector, AuctionLinkSelector)
	}
	if nf.Fallback != "" {
		t.Errorf("Fallback = %q, want empty", nf.Fallback)
	}
	want := `no auction-date control present (selector ".btn.btn-primary.mt-3")`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestLocate_NotFoundNamesBothSelectors(t *testing.T) {
	_, err := Locate(`<p>No auctions scheduled</p>`, DefaultSelectors())

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Locate() error = %v, want *NotFoundError", err)
	}
	if nf.Selector != AuctionLinkSelector || nf.Fallback != AuctionLinkFlexSelector {
		t.Errorf("NotFoundError = %+v, want both selectors", nf)
	}
	want := `no auction-date control present (selectors ".btn.btn-primary.mt-3", ".d-flex.flex-column a.btn")`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
