package agent

import "context"

// LookupResult is one storefront match for a human-typed title.
type LookupResult struct {
	ExternalID string
	Name       string
	Price      *float64
	Currency   string
}

// Lookup resolves a title against a storefront catalog. It is called only to
// enrich games entering the watchlist, always outside the mutation lock, and
// its failure is never fatal: an unresolved game stays unenriched.
type Lookup interface {
	Search(ctx context.Context, title string, limit int) ([]LookupResult, error)
}
