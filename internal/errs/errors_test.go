package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(CodeInvalidConnectionURI, "connection URI is empty"),
			want: "[INVALID_CONNECTION_URI] connection URI is empty",
		},
		{
			name: "with cause",
			err:  Wrap(CodeConnectionFailed, "connect attempt failed", errors.New("dial tcp: refused")),
			want: "[CONNECTION_FAILED] connect attempt failed: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodeOf(t *testing.T) {
	inner := New(CodePermissionDenied, "extension was denied")
	wrapped := fmt.Errorf("dispatch failed: %w", inner)

	assert.Equal(t, CodePermissionDenied, CodeOf(inner))
	assert.Equal(t, CodePermissionDenied, CodeOf(wrapped))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsPermissionDenied(New(CodePermissionDenied, "no")))
	assert.True(t, IsPermissionRequired(New(CodePermissionRequired, "ask first")))
	assert.True(t, IsInvalidConnectionURI(New(CodeInvalidConnectionURI, "empty")))
	assert.True(t, IsNoActiveConnection(New(CodeNoActiveConnection, "gone")))
	assert.True(t, IsConnectionNotFound(New(CodeConnectionNotFound, "missing")))
	assert.True(t, IsConnectionFailed(New(CodeConnectionFailed, "refused")))
	assert.True(t, IsQueryExecutionFailed(New(CodeQueryExecutionFailed, "syntax")))

	assert.False(t, IsPermissionDenied(New(CodePermissionRequired, "ask first")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(CodeQueryExecutionFailed, "query failed", cause)

	assert.True(t, errors.Is(err, cause))
}

// The code and optional context fields must survive a trip through JSON —
// foreign callers receive errors in serialized form.
func TestJSONRoundTrip(t *testing.T) {
	err := New(CodeConnectionNotFound, "no profile with that id").
		WithExtension("test.extension").
		WithConnection("conn-1")

	raw, jerr := json.Marshal(err)
	require.NoError(t, jerr)

	var decoded Error
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, CodeConnectionNotFound, decoded.Code)
	assert.Equal(t, "no profile with that id", decoded.Message)
	assert.Equal(t, "test.extension", decoded.ExtensionID)
	assert.Equal(t, "conn-1", decoded.ConnectionID)
}

func TestOmitsEmptyContext(t *testing.T) {
	raw, err := json.Marshal(New(CodeNoActiveEditor, "no editor has focus"))
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "extensionId")
	assert.NotContains(t, string(raw), "connectionId")
}
