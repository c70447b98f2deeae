// Package gemini runs analysis steps against Google's Gemini API.
//
// This package is an infrastructure adapter: it implements
// analysis.StepRunner and hides the genai client from the rest of the
// application.
//
// Key behavior:
//
// 1. Requests:
//   - Sends the step prompt and the raw image bytes as inline data
//   - Asks for application/json output constrained by a genai.Schema
//     built from the step's fields
//
// 2. Responses:
//   - Concatenates the text parts of the first candidate
//   - Reports blocked prompts and safety stops as analysis.ErrContentBlocked
//   - Reports empty or missing candidates as analysis.ErrInvalidResponse
//
// 3. Error Handling:
//   - Retries transient API failures with exponential backoff and jitter
//   - Returns permanent failures immediately
package gemini
