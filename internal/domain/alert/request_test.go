package alert

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewArithmeticChallenge verifies the question format and that the answer matches it.
func TestNewArithmeticChallenge(t *testing.T) {
	t.Parallel()

	src := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // Deterministic source for tests.

	for range 200 {
		challenge := NewArithmeticChallenge(src)

		var (
			a, b int
			op   string
		)

		_, err := fmt.Sscanf(challenge.Question, "Solve this: %d %s %d", &a, &op, &b)
		require.NoError(t, err)
		require.GreaterOrEqual(t, a, 1)
		require.LessOrEqual(t, a, 100)
		require.GreaterOrEqual(t, b, 1)
		require.LessOrEqual(t, b, 100)

		want := a + b
		if op == "-" {
			want = a - b
		}

		require.Equal(t, strconv.Itoa(want), challenge.Answer)
		require.True(t, challenge.Check(" "+challenge.Answer+" "))
		require.False(t, challenge.Check(strconv.Itoa(want+1)))
	}
}

// TestChallenge_Check covers numeric and textual comparisons.
func TestChallenge_Check(t *testing.T) {
	t.Parallel()

	var nilChallenge *Challenge
	require.True(t, nilChallenge.Check("anything"))

	numeric := &Challenge{Question: "q", Answer: "-7"}
	require.True(t, numeric.Check("-07"))
	require.False(t, numeric.Check("7"))
	require.False(t, numeric.Check("abc"))

	textual := &Challenge{Question: "q", Answer: "Blue"}
	require.True(t, textual.Check("blue"))
}

// TestRecord_Clone ensures clones do not share mutable state.
func TestRecord_Clone(t *testing.T) {
	t.Parallel()

	req := &Request{Message: "m", Challenge: &Challenge{Question: "q", Answer: "1"}}
	record := NewRecord(req, time.Unix(100, 0))
	require.Equal(t, OutcomePending, record.Outcome)
	require.NotSame(t, req, record.Request)

	ackAt := time.Unix(160, 0)
	record.AcknowledgedAt = &ackAt

	cloned := record.Clone()
	require.Equal(t, record.ID, cloned.ID)
	require.NotSame(t, record.AcknowledgedAt, cloned.AcknowledgedAt)
	require.NotSame(t, record.Request.Challenge, cloned.Request.Challenge)
	require.Equal(t, *record.AcknowledgedAt, *cloned.AcknowledgedAt)
}

// TestOutcome_Terminal checks the terminal classification.
func TestOutcome_Terminal(t *testing.T) {
	t.Parallel()

	require.False(t, OutcomePending.Terminal())
	require.True(t, OutcomeAcknowledgedOnTime.Terminal())
	require.True(t, OutcomeTimedOut.Terminal())
	require.True(t, OutcomeAcknowledgedLate.Acknowledged())
	require.False(t, OutcomeDismissedUnacknowledged.Acknowledged())
}
