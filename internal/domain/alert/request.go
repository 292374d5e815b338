package alert

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Source identifies which trigger produced a request.
type Source string

const (
	// SourceScheduled marks requests produced by the in-window scheduler.
	SourceScheduled Source = "scheduled"
	// SourceManual marks requests submitted on demand through the control API.
	SourceManual Source = "manual"
)

// DefaultMessage is the text shown by scheduled alerts.
const DefaultMessage = "Security Alert"

// Request describes an alert that should be presented to the user.
// A request is immutable once created.
type Request struct {
	// Message is the text shown to the user.
	Message string
	// PlaySound requests the alert sound to loop while the alert is shown.
	PlaySound bool
	// Challenge, when set, must be answered correctly to acknowledge.
	Challenge *Challenge
	// Source tells which trigger produced the request.
	Source Source
	// RequestedBy is "user@host" for manual requests.
	RequestedBy string
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Challenge = r.Challenge.Clone()

	return &cloned
}

// Challenge is a question whose answer proves the user is paying attention.
type Challenge struct {
	// Question is shown to the user.
	Question string
	// Answer is the expected reply.
	Answer string
}

// Clone returns a copy of the challenge.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// Check reports whether answer matches the expected answer.
// Integer answers are compared numerically so "07" equals "7".
func (c *Challenge) Check(answer string) bool {
	if c == nil {
		return true
	}

	answer = strings.TrimSpace(answer)
	expected := strings.TrimSpace(c.Answer)

	got, gotErr := strconv.Atoi(answer)
	want, wantErr := strconv.Atoi(expected)

	if gotErr == nil && wantErr == nil {
		return got == want
	}

	return strings.EqualFold(answer, expected)
}

// Intn is the subset of *rand.Rand used to build challenges.
type Intn interface {
	IntN(n int) int
}

const (
	challengeOperandMin = 1
	challengeOperandMax = 100
)

// NewArithmeticChallenge returns "Solve this: A op B" with operands in [1, 100]
// and op chosen from addition and subtraction. A nil source uses the global generator.
func NewArithmeticChallenge(src Intn) *Challenge {
	intn := rand.IntN
	if src != nil {
		intn = src.IntN
	}

	span := challengeOperandMax - challengeOperandMin + 1
	a := challengeOperandMin + intn(span)
	b := challengeOperandMin + intn(span)

	op, result := "+", a+b
	if intn(2) == 1 {
		op, result = "-", a-b
	}

	return &Challenge{
		Question: fmt.Sprintf("Solve this: %d %s %d", a, op, b),
		Answer:   strconv.Itoa(result),
	}
}
