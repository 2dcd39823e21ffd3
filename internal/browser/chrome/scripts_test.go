package chrome

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

func TestResultErrMapsStatuses(t *testing.T) {
	assert.NoError(t, result{Status: "ok"}.err())
	assert.ErrorIs(t, result{Status: "stale"}.err(), interfaces.ErrStaleElement)
	assert.ErrorIs(t, result{Status: "no_option"}.err(), interfaces.ErrOptionNotFound)

	intercepted := result{Status: "intercepted", Blocker: "div.ns-box"}.err()
	assert.ErrorIs(t, intercepted, interfaces.ErrClickIntercepted)
	assert.Contains(t, intercepted.Error(), "div.ns-box")

	assert.EqualError(t, result{Status: "error", Text: "boom"}.err(), "script error: boom")
	assert.Error(t, result{Status: "weird"}.err())
}

func TestExpressionEmbedsEncodedArgument(t *testing.T) {
	expr, err := expression(queryScript, queryArg{By: "css", Value: `td[title="x"]`, Text: "O'Brien"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(expr, "(() => {"))
	assert.Contains(t, expr, `"value":"td[title=\"x\"]"`)
	assert.Contains(t, expr, `"text":"O'Brien"`)
	assert.NotContains(t, expr, `"root"`)
}
