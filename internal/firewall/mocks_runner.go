package firewall

import (
	"github.com/stretchr/testify/mock"
)

// MockCommandRunner is a mock implementation of CommandRunner for testing.
type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(name string, args ...string) error {
	result := m.Called(callArgs(nil, name, args)...)
	return result.Error(0)
}

func (m *MockCommandRunner) Output(name string, args ...string) ([]byte, error) {
	result := m.Called(callArgs(nil, name, args)...)
	if result.Get(0) == nil {
		return nil, result.Error(1)
	}
	return result.Get(0).([]byte), result.Error(1)
}

// RunInput records the input as the first call argument.
func (m *MockCommandRunner) RunInput(input string, name string, args ...string) error {
	result := m.Called(callArgs([]interface{}{input}, name, args)...)
	return result.Error(0)
}

func callArgs(prefix []interface{}, name string, args []string) []interface{} {
	out := make([]interface{}, 0, len(prefix)+len(args)+1)
	out = append(out, prefix...)
	out = append(out, name)
	for _, a := range args {
		out = append(out, a)
	}
	return out
}
