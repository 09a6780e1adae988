// Package gomegax contains gomega matchers used by the test suites.
package gomegax

import (
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// EqualX returns a matcher that compares values using cmp.Equal() rather than
// reflect.DeepEqual().
//
// If no options are given, nil and empty collections are considered equal,
// and times are considered equal if they are within a millisecond of each
// other, which is the precision that the data-stores keep.
func EqualX(expected any, options ...cmp.Option) types.GomegaMatcher {
	if len(options) == 0 {
		options = []cmp.Option{
			cmpopts.EquateEmpty(),
			cmpopts.EquateApproxTime(time.Millisecond),
		}
	}

	return cmpMatcher{expected, options}
}

type cmpMatcher struct {
	expected any
	options  cmp.Options
}

func (m cmpMatcher) Match(actual any) (bool, error) {
	return cmp.Equal(actual, m.expected, m.options), nil
}

func (m cmpMatcher) FailureMessage(actual any) string {
	return m.message(actual, "to equal")
}

func (m cmpMatcher) NegatedFailureMessage(actual any) string {
	return m.message(actual, "not to equal")
}

func (m cmpMatcher) message(actual any, relation string) string {
	return fmt.Sprintf(
		"%s\n\nDiff (-actual +expected):\n%s",
		format.Message(actual, relation, m.expected),
		format.IndentString(cmp.Diff(actual, m.expected, m.options), 1),
	)
}
