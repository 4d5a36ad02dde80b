package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgnsrekt/speakeasy/internal/speech"
)

// DecodeQueueItems normalizes a queue-state document into requests. Each
// element may be a bare string or a {text, voice} object; bare strings and
// objects without a voice get defaultVoice. Items without text are dropped.
func DecodeQueueItems(data []byte, defaultVoice string) ([]speech.Request, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding queue: %w", err)
	}

	reqs := make([]speech.Request, 0, len(raw))
	for i, item := range raw {
		text, voice, err := decodeQueueItem(item)
		if err != nil {
			return nil, fmt.Errorf("queue item %d: %w", i, err)
		}
		if voice == "" {
			voice = defaultVoice
		}
		req, err := speech.NewRequest(text, voice)
		if errors.Is(err, speech.ErrEmptyText) {
			continue
		}
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func decodeQueueItem(item json.RawMessage) (string, string, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		err := json.Unmarshal(trimmed, &text)
		return text, "", err
	}

	var obj textVoice
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", "", err
	}
	return obj.Text, obj.Voice, nil
}
