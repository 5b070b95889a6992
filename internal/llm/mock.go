package llm

import "context"

// MockClient is a scripted Client for tests: it returns the queued reply (or
// error), and can optionally block until released to exercise the
// request-pending state.
type MockClient struct {
	Reply string
	Err   error
	// Gate, when non-nil, blocks Complete until the channel is closed or
	// the context is cancelled. Started, when non-nil, receives a value as
	// soon as Complete is entered so tests can observe the in-flight state.
	Gate    chan struct{}
	Started chan struct{}

	Calls []string
}

func (m *MockClient) Complete(ctx context.Context, topic string) (string, error) {
	m.Calls = append(m.Calls, topic)
	if m.Started != nil {
		select {
		case m.Started <- struct{}{}:
		default:
		}
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
