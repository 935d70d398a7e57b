// Package models lists the OpenAI chat models available for the current
// API key, so users can pick a model for the formatter and the reading
// lookup.
package models
