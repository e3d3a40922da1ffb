// Package restwrap turns a declarative mapping of resource names to URL
// templates into a small REST client.
//
// # Overview
//
// A mapping lists each resource with its URL template and free-form
// documentation fields, in YAML or JSON:
//
//	user:
//	  resource: "https://api.example.com/user/{id}/"
//	  docs: "https://docs.example.com/user"
//	users:
//	  resource: "https://api.example.com/users"
//
// The parsed descriptors go into a Registry, and a Client executes requests
// against them through a Transport. The restclient package wires a real HTTP
// transport, authentication and caching; tests and embedders can supply their
// own Transport.
//
//	descriptors, err := restwrap.ParseResourceMapping(raw)
//	if err != nil { log.Fatal(err) }
//
//	registry, err := restwrap.NewRegistry(descriptors...)
//	if err != nil { log.Fatal(err) }
//
//	client, err := restwrap.NewClient(registry, transport)
//	if err != nil { log.Fatal(err) }
//
//	user, err := client.Resource("user", restwrap.Params{"id": "123"})
//	if err != nil { log.Fatal(err) }
//
//	resp, err := user.Get(ctx)
//	name, err := resp.At("data", "name").Text()
//
// # Responses and data
//
// HTTP error statuses are ordinary responses; only a failed exchange or an
// undecodable body is an error. A Response embeds Data, an immutable view on
// the decoded body. Field, Index and At address nested values and carry the
// first AddressError along the chain; Lookup accepts gjson paths.
//
// # Pagination
//
// Iterate (or Response.Iter) returns an Iterator that walks items across
// pages. The next page is fetched only once the current one is exhausted.
// The default PagingRule reads items from "data" and the next link from
// "paging.next"; PathPagingRule and WithPagingRule adapt it to other APIs.
//
//	it, err := users.Iterate(ctx)
//	if err != nil { log.Fatal(err) }
//	for it.Next() {
//	  _ = it.Item()
//	}
//	if err := it.Err(); err != nil { /* handle error */ }
//
// # Interceptors and caching
//
// Request and response interceptors run around every exchange, for logging,
// auth headers or custom headers. CachingTransport serves repeated GET
// requests from a memory or NATS KV cache.
package restwrap
