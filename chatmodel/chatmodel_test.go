package chatmodel

import (
	goerr "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrFailedUnmarshalInput(t *testing.T) {
	err := ErrFailedUnmarshalInput
	assert.True(t, goerr.Is(err, ErrFailedUnmarshalInput))
	assert.True(t, goerr.Is(errors.WithStack(err), ErrFailedUnmarshalInput))
	assert.True(t, goerr.Is(errors.Wrap(err, "test"), ErrFailedUnmarshalInput))
	assert.True(t, goerr.Is(errors.WithMessage(err, "test"), ErrFailedUnmarshalInput))
}

func TestUnmarshalInput(t *testing.T) {
	t.Parallel()

	type details struct {
		Email string `json:"email"`
		Name  string `json:"name,omitempty"`
	}

	t.Run("strict", func(t *testing.T) {
		t.Parallel()
		var d details
		err := UnmarshalInput(`{"email":"john@example.com","name":"John"}`, &d)
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", d.Email)
		assert.Equal(t, "John", d.Name)
	})

	t.Run("fenced", func(t *testing.T) {
		t.Parallel()
		var d details
		err := UnmarshalInput("Here you go:\n```json\n{\"email\":\"john@example.com\"}\n```\n", &d)
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", d.Email)
	})

	t.Run("lenient", func(t *testing.T) {
		t.Parallel()
		var d details
		err := UnmarshalInput(`{"email":"john@example.com",}`, &d)
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", d.Email)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		var d details
		err := UnmarshalInput("not a json at all", &d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFailedUnmarshalInput))
	})
}

type customContent struct {
	Value string
}

func (c customContent) GetContent() string { return c.Value }

type customString struct{}

func (customString) String() string { return "custom" }

func TestStringify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "custom", Stringify(customString{}))
	assert.Equal(t, "hit", Stringify(customContent{Value: "hit"}))
	assert.Equal(t, `{"recorded":"ok"}`, Stringify(map[string]string{"recorded": "ok"}))

	assert.Equal(t, []byte("custom"), ToBytes(customString{}))
	assert.Equal(t, []byte("hit"), ToBytes(customContent{Value: "hit"}))
	assert.Equal(t, []byte(`{"recorded":"ok"}`), ToBytes(map[string]string{"recorded": "ok"}))
}
