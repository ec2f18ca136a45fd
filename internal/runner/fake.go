package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is a scripted Runner for tests. Responses are matched against
// the rendered command line by substring; unmatched commands succeed
// with empty output unless FailUnmatched is set.
type Fake struct {
	mu            sync.Mutex
	responses     []fakeResponse
	Calls         []string
	FailUnmatched bool
}

type fakeResponse struct {
	match  string
	result Result
}

// NewFake returns an empty scripted runner.
func NewFake() *Fake {
	return &Fake{}
}

// Respond registers a canned result for command lines containing match.
// Earlier registrations win.
func (f *Fake) Respond(match string, result Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{match: match, result: result})
}

// Fail registers a failing result for command lines containing match.
func (f *Fake) Fail(match string, output string) {
	f.Respond(match, Result{
		ExitCode: 1,
		Output:   output,
		Err:      fmt.Errorf("%s: exit status 1", match),
	})
}

func (f *Fake) Run(_ context.Context, spec Spec) Result {
	line := spec.String()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, line)

	for _, r := range f.responses {
		if strings.Contains(line, r.match) {
			res := r.result
			res.Command = line
			return res
		}
	}

	if f.FailUnmatched {
		return Result{
			Command:  line,
			ExitCode: 1,
			Err:      fmt.Errorf("unexpected command: %s", line),
		}
	}
	return Result{Command: line}
}

// Called reports whether any recorded command line contains match.
func (f *Fake) Called(match string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.Contains(c, match) {
			return true
		}
	}
	return false
}
