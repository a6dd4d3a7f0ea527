// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ticket imports ticket documents for the estimation session.

It is a pure data-transform collaborator: fetch a JSON document by key,
flatten its rich-text body into display markup, and hand the result to
the engine as an opaque Ticket payload. No concurrency, no session
state.

	f := ticket.NewHTTPFetcher("https://tickets.internal/api/issues")
	t, err := f.Fetch(ctx, "PROJ-123")
*/
package ticket
