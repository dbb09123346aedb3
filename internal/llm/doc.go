// Package llm classifies free-form transaction text with a generative model.
//
// A Classifier builds a prompt listing every transaction type and its
// categories, sends it through a Generator, and validates the JSON reply into
// a model.ClassificationResult. GeminiGenerator is the production Generator.
// Replies are never cached and calls are never retried.
package llm
