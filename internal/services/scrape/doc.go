// Package scrape fetches chapter source pages over HTTP and reduces them to
// plain text plus an optional saved snapshot of the raw page. Browser
// rendering is out of scope; pages that need JavaScript to show their content
// are not supported.
package scrape
