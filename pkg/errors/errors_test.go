package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCodeAndStack(t *testing.T) {
	err := New(ErrCodeInternal, "boom")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Equal(t, "boom", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[COMMON_001] boom", err.Error())
}

func TestErrorFormatIncludesDetail(t *testing.T) {
	err := InvalidInput("normalize", "empty text")
	assert.Equal(t, "[NLP_001] normalize: invalid input: empty text", err.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	var inner error
	assert.Nil(t, Wrap(inner, ErrCodeInternal, "ignored"))
}

func TestWrapPreservesCodeForUnknown(t *testing.T) {
	inner := OracleUnavailable("span-tagger", stderrors.New("dial tcp: refused"))
	outer := Wrap(inner, ErrCodeUnknown, "extraction failed")
	assert.Equal(t, ErrCodeOracleUnavailable, outer.Code)
	assert.True(t, stderrors.Is(outer, inner.Cause) || IsOracleUnavailable(outer))
}

func TestUnwrapChain(t *testing.T) {
	root := stderrors.New("connection reset")
	mid := Wrap(root, ErrCodeOracleUnavailable, "embedder call failed")
	top := fmt.Errorf("rank: %w", mid)

	assert.True(t, stderrors.Is(top, root))
	assert.True(t, IsOracleUnavailable(top))

	var ae *AppError
	require.True(t, stderrors.As(top, &ae))
	assert.Equal(t, ErrCodeOracleUnavailable, ae.Code)
}

func TestIsCodeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"invalid input", InvalidInput("trajectory", ""), IsInvalidInput, true},
		{"malformed output", MalformedOutput("embedder", "dim mismatch"), IsMalformedOutput, true},
		{"not found", NotFound("case"), IsNotFound, true},
		{"plain error is nothing", stderrors.New("plain"), IsInvalidInput, false},
		{"nil", nil, IsOracleUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeInvalidInput, GetCode(InvalidInput("rank", "no candidates")))

	wrapped := fmt.Errorf("outer: %w", MalformedOutput("risk-scorer", "NaN risk"))
	assert.Equal(t, ErrCodeMalformedOracleOutput, GetCode(wrapped))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrCodeInvalidInput.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, ErrCodeOracleUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, ErrCodeMalformedOracleOutput.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("BOGUS").HTTPStatus())
}

func TestWithDetailClones(t *testing.T) {
	base := New(ErrCodeNotFound, "case not found")
	detailed := base.WithDetail("case_id=42")
	assert.Empty(t, base.Detail)
	assert.Equal(t, "case_id=42", detailed.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("y")))
}
