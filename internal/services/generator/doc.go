// Package generator talks to an OpenRouter-compatible chat completion API to
// produce chapter rewrites and editorial reviews. The pipeline only depends
// on the Generator interface; this client is the production implementation.
package generator
