// Package driver abstracts the browser behind small interfaces so the
// engine can be exercised against fakes. The real implementation rides
// on go-rod over the Chrome DevTools Protocol.
package driver

import (
	"context"
)

// Cookie is one session cookie injected into the browser.
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Driver is an attached browser.
type Driver interface {
	// NewPage opens a fresh tab.
	NewPage(ctx context.Context) (Page, error)
	// SetCookies installs session cookies browser-wide.
	SetCookies(ctx context.Context, cookies []Cookie) error
	// Close detaches from the browser and releases resources.
	Close() error
}

// Page is one browser tab.
type Page interface {
	// Navigate loads the URL and waits for the DOMContentLoaded milestone.
	Navigate(ctx context.Context, url string) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// FrameHTML returns the document of a nested frame matched by
	// selector. Callers fall back to the default document on error.
	FrameHTML(ctx context.Context, selector string) (string, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Fill types value into the first element matching selector.
	Fill(ctx context.Context, selector string, value string) error
	// Text returns the text content of the first matching element.
	Text(ctx context.Context, selector string) (string, error)
	// Close closes the tab.
	Close() error
}
