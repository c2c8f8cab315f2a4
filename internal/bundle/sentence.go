package bundle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentence is one quotation record. Records are immutable once written and
// identified by UUID; category membership is implied by the file it came from.
//
// A sentence read from JSON keeps the record verbatim in Raw and is written
// back unchanged, so fields this type does not model survive a sync.
type Sentence struct {
	ID         int     `json:"id"`
	UUID       string  `json:"uuid"`
	Hitokoto   string  `json:"hitokoto"`
	Type       string  `json:"type"`
	From       string  `json:"from"`
	FromWho    *string `json:"from_who"`
	Creator    string  `json:"creator"`
	CreatorUID int     `json:"creator_uid"`
	Reviewer   int     `json:"reviewer"`
	CommitFrom string  `json:"commit_from"`
	CreatedAt  string  `json:"created_at"`
	Length     int     `json:"length"`

	Raw json.RawMessage `json:"-"`
}

// sentenceFields is Sentence without its JSON methods.
type sentenceFields Sentence

// UnmarshalJSON decodes a record. uuid, type and length must have the
// expected types; any other field that does not is left zero.
func (s *Sentence) UnmarshalJSON(data []byte) error {
	var key struct {
		UUID   string `json:"uuid"`
		Type   string `json:"type"`
		Length int    `json:"length"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}

	var fields sentenceFields
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*s = Sentence(fields)
	s.UUID, s.Type, s.Length = key.UUID, key.Type, key.Length
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the record as it was read, or the modelled fields for
// a sentence built in code.
func (s Sentence) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(sentenceFields(s))
}

// Validate checks the sentence can be stored and indexed.
func (s *Sentence) Validate() error {
	if s.UUID == "" {
		return fmt.Errorf("uuid is required")
	}
	if _, err := uuid.Parse(s.UUID); err != nil {
		return fmt.Errorf("uuid %q is malformed: %w", s.UUID, err)
	}
	if s.Length < 0 {
		return fmt.Errorf("length must be non-negative (got %d)", s.Length)
	}
	return nil
}
