// Package web provides the fetch_to_file and scrape_to_file tools.
//
// Both tools issue a GET request and write the result into the sandbox.
// fetch_to_file stores the response body verbatim. scrape_to_file stores
// one of three renderings of an HTML page:
//
//   - raw: the body as served
//   - text: the readable article text extracted with go-readability
//   - markdown: the main content area converted with html-to-markdown
//
// # URL policy
//
// Only http and https URLs are accepted. Unless AllowPrivate is set the
// fetcher also blocks localhost, .local/.internal domains and private or
// reserved IP ranges. Resolved addresses are checked again at dial time
// to defeat DNS rebinding, and every redirect target is re-validated.
package web
