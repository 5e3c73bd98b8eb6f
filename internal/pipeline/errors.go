package pipeline

import "errors"

// ErrNoListing is returned by ExtractStep when no earlier step produced a listing.
var ErrNoListing = errors.New("no listing to extract from")
