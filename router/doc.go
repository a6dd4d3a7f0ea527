// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the route table using Go 1.22+ method routing.

	mux := router.NewRouter(eng, registry, dispatcher, monitor, fetcher)
	server := http.Server{Handler: middleware.CORS(mux)}

All session routes are wrapped with request logging except the
websocket endpoint, whose connections are long-lived.
*/
package router
