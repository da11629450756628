// Package graphql is a client for a GraphQL backend exposing one endpoint per
// operation kind:
//
//	GET  <base>/query?name=<op>&variables=<json>
//	POST <base>/mutate?name=<op>      JSON variables
//	POST <base>/upload?name=<op>      multipart body
//
// Query responses are kept in a bounded FIFO cache keyed by operation name and
// canonical variables JSON, so repeating a query does not reach the server.
// Mutations and uploads always do. Every response is normalized into an
// [Envelope] whose Errors list is never nil; GraphQL errors are data, not Go
// errors. Go errors are reserved for non-2xx statuses ([ServerError]),
// transport failures ([TransportError]), bad input ([ErrInvalidArgument]) and
// bodies that are not an envelope ([ErrMalformedResponse]).
package graphql
