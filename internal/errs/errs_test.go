package errs

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsValidation(t *testing.T) {
	err := Validationf("bad date %q", "2024-13-01")
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), `bad date "2024-13-01"`)

	// Detection survives an eris wrap.
	assert.True(t, IsValidation(eris.Wrap(err, "query: resolve")))
	assert.False(t, IsValidation(eris.New("something else")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(&TimeoutError{Op: "overview", Budget: "30s"}))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(eris.Wrap(context.DeadlineExceeded, "query: overview")))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(Validationf("nope")))
}

func TestFromContext(t *testing.T) {
	converted := FromContext(context.DeadlineExceeded, "trends", "30s")
	var te *TimeoutError
	assert.ErrorAs(t, converted, &te)
	assert.Equal(t, "trends", te.Op)
	assert.Equal(t, "timeout: trends exceeded budget 30s", te.Error())

	// Non-deadline errors pass through untouched.
	original := eris.New("boom")
	assert.Same(t, original, FromContext(original, "trends", "30s"))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "compute: median: no eligible rows",
		(&ComputeError{Op: "median", Msg: "no eligible rows"}).Error())
	assert.Equal(t, "consistency: table item_pairs: row count mismatch",
		(&ConsistencyError{Table: "item_pairs", Msg: "row count mismatch"}).Error())
}
