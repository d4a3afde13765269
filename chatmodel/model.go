package chatmodel

import (
	"encoding/json"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/pkg/llmutils"
)

var (
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// ContentProvider provides the content of a message for the chat history.
type ContentProvider interface {
	GetContent() string
}

// InputParser parses a raw input string into the receiver.
// If the input does not match the schema, it returns ErrFailedUnmarshalInput.
type InputParser interface {
	ParseInput(input string) error
}

type Stringer interface {
	String() string
}

func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

func ToBytes(s any) []byte {
	if v, ok := s.(Stringer); ok {
		return []byte(v.String())
	}
	if v, ok := s.(ContentProvider); ok {
		return []byte(v.GetContent())
	}
	bs, _ := json.Marshal(s)
	return bs
}

// UnmarshalInput decodes model-produced tool arguments into v.
// The input is cleaned of prose and code fences first, then parsed strictly,
// with a lenient fallback for the malformed JSON models sometimes emit.
// It returns ErrFailedUnmarshalInput if both attempts fail.
func UnmarshalInput(input string, v any) error {
	data := llmutils.CleanJSON([]byte(input))
	if err := json.Unmarshal(data, v); err != nil {
		if err2 := ljson.Unmarshal(data, v); err2 != nil {
			return errors.WithStack(ErrFailedUnmarshalInput)
		}
	}
	return nil
}
