package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/errs"
)

func TestErrorMessage(t *testing.T) {
	e := errs.UnknownChild("measure", "foobar", "/mei/music/body/mdiv/score/measure[3]")
	require.EqualError(t, e, `UnknownChild at /mei/music/body/mdiv/score/measure[3]: "foobar" is not a permitted child of "measure"`)
}

func TestWithPathPrependsFile(t *testing.T) {
	e := errs.New(errs.ParseErrorKind, "line 4", "unexpected token")
	decorated := e.WithPath("score.ly")
	assert.Equal(t, "score.ly:line 4", decorated.Path)
}

func TestIsUnwraps(t *testing.T) {
	base := errs.UnresolvedReference("slur", "n99", "/mei/.../slur[1]")
	// Wrapping is not how Tusk errors normally travel, but Is must still
	// find the *Error through the wrapper's Unwrap.
	wrapped := fmt.Errorf("converting score.mei: %w", base)
	assert.True(t, errs.Is(wrapped, errs.UnresolvedReferenceKind))
	assert.False(t, errs.Is(wrapped, errs.ParseErrorKind))
}

func TestWrapUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := errs.SchemaError("mei.rng", "malformed include", inner)
	require.ErrorIs(t, e, inner)
}
