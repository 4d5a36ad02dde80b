// Package speech holds the types shared by every stage of the listening
// client: the unit of speech and the error kinds surfaced by the pipeline.
package speech

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyText is returned when a request would carry no speakable text.
var ErrEmptyText = errors.New("speech text is empty")

// Request is one unit of speech to synthesize and play. Values are never
// modified after NewRequest returns them.
type Request struct {
	ID        string
	Text      string
	Voice     string
	CreatedAt time.Time
}

// NewRequest creates a request with a unique ID.
func NewRequest(text, voice string) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, ErrEmptyText
	}
	return Request{
		ID:        uuid.New().String(),
		Text:      text,
		Voice:     voice,
		CreatedAt: time.Now(),
	}, nil
}

// Texts returns the text of each request, in order.
func Texts(reqs []Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Text
	}
	return out
}
