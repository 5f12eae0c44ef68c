/*
Package xrpc implements the HTTP query client shared by the labeler and
repository endpoints.

The client only speaks "Query" (GET) XRPC calls, which is all the label
engine needs. Throttling (429) and server faults (5xx, network errors) are
retried with a bounded, explicit backoff state machine; 4xx responses and
body parse failures are terminal. Every attempt, including retried ones, is
reported to the configured RequestObserver.
*/
package xrpc
