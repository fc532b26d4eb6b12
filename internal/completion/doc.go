// Package completion streams chat replies from an OpenAI-compatible API.
//
// The client POSTs the full conversation transcript with streaming enabled,
// then drains the SSE response line by line, concatenating every delta
// fragment in arrival order. Callers receive the complete reply as one
// string only after the stream is exhausted; no partial output is surfaced.
// Sampling parameters are fixed; only the endpoint, API key, and model are
// configurable.
package completion
