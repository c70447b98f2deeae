// Package analysis defines the boundary between the task worker and the
// vision models that describe images. It owns the analysis pipeline (three
// structured prompts: description, tags, visible text), the schema of each
// step's answer and the ImageMetadata result, and leaves the model call to a
// StepRunner supplied by a platform package such as ollama or gemini.
package analysis
