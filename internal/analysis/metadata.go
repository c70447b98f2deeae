package analysis

import (
	"github.com/phrazzld/image-tagger/internal/task"
)

// ImageMetadata is the analysis result stored on a completed task.
type ImageMetadata struct {
	Description string   `json:"description"  validate:"required"`
	Tags        []string `json:"tags"         validate:"required,min=1,dive,required"`
	TextContent string   `json:"text_content"`
	IsProcessed bool     `json:"is_processed"`
}

// AsResult converts the metadata to the opaque task payload.
func (m ImageMetadata) AsResult() task.Result {
	tags := make([]string, len(m.Tags))
	copy(tags, m.Tags)
	return task.Result{
		"description":  m.Description,
		"tags":         tags,
		"text_content": m.TextContent,
		"is_processed": m.IsProcessed,
	}
}

// stepAnswer is the union of every step's answer fields
type stepAnswer struct {
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
	HasText     *bool    `json:"has_text"`
	TextContent *string  `json:"text_content"`
}
