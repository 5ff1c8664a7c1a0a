// Package acl is the anti-corruption layer between the quote service and the
// domain.
//
// The quote service answers GET /quotes with a JSON object:
//
//	{"quote": "...", "author": "..."}
//
// [QuoteClient] turns that payload into a [domain.Quote] without validating
// its schema. Fields that are missing, or hold objects or arrays, become
// blank; a blank quote is still a successful fetch. Everything else that can
// go wrong collapses into a single failure kind, [domain.ErrFetchFailed]:
//
//   - No response (connection refused, DNS, TLS, canceled) via [MapFetchError]
//   - Any non-2xx status, with the error body message as the reason
//   - A body that is not valid JSON
//
// Nothing here retries. The caller decides when to try again.
package acl
