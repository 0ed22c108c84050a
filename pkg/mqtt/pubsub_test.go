package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool {
	<-t.done

	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} {
	return t.done
}

func (t *fakeToken) Error() error {
	return t.err
}

func completed(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)

	return t
}

func pending() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func TestWait(t *testing.T) {
	errBroker := errors.New("broker refused")
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		desc    string
		timeout time.Duration
		ctx     context.Context
		token   *fakeToken
		err     error
	}{
		{
			desc:    "completed",
			timeout: time.Second,
			ctx:     context.Background(),
			token:   completed(nil),
		},
		{
			desc:    "completed with error",
			timeout: time.Second,
			ctx:     context.Background(),
			token:   completed(errBroker),
			err:     errBroker,
		},
		{
			desc:    "context canceled",
			timeout: time.Second,
			ctx:     canceled,
			token:   pending(),
			err:     context.Canceled,
		},
		{
			desc:    "timeout",
			timeout: 10 * time.Millisecond,
			ctx:     context.Background(),
			token:   pending(),
			err:     ErrTimeout,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ps := &pubsub{cfg: Config{Timeout: tc.timeout}, logger: slog.New(slog.DiscardHandler)}
			err := ps.wait(tc.ctx, tc.token)
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEmptyArguments(t *testing.T) {
	_, err := NewPubSub(Config{}, "", slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, errEmptyID)

	ps := &pubsub{logger: slog.New(slog.DiscardHandler)}
	assert.ErrorIs(t, ps.Publish(context.Background(), "", nil), errEmptyTopic)
	assert.ErrorIs(t, ps.Subscribe(context.Background(), "", nil), errEmptyTopic)
	assert.ErrorIs(t, ps.Unsubscribe(context.Background(), ""), errEmptyTopic)
}
