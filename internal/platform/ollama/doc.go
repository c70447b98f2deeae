// Package ollama runs analysis steps against a local Ollama vision model
// using structured outputs over the streaming chat endpoint.
package ollama
