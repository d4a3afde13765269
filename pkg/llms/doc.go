// Package llms defines the message model and the Model interface used to
// interact with chat-completion providers. The agent composes conversations
// from Message values, advertises tool definitions through call options, and
// receives either final text or tool-call requests in a ContentResponse.
//
// Provider subpackages implement the Model interface; their internal
// directories contain the provider-specific clients and wire types.
//
// The `llms.go` file contains the types and interfaces for interacting with
// providers; `options.go` provides the options to configure a call.
package llms
