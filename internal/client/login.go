package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joseph-ayodele/repair-jobsheets/internal/services/auth"
)

// LoginState is where a LoginFlow currently is.
type LoginState int

const (
	StateIdle LoginState = iota
	StateAttempting
	StateSucceeded
	StateExhausted
)

func (s LoginState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("LoginState(%d)", int(s))
	}
}

// DefaultAttemptTimeouts shrink so a cold-starting backend gets the longest
// window on the first try.
var DefaultAttemptTimeouts = []time.Duration{60 * time.Second, 30 * time.Second, 15 * time.Second}

const DefaultRetryPause = 2 * time.Second

var (
	ErrAttemptsExhausted = errors.New("login: all attempts timed out or failed")
	ErrLoginInProgress   = errors.New("login: already in progress")
)

// LoginFunc performs one login attempt. It must honour ctx cancellation.
type LoginFunc func(ctx context.Context) (*auth.Session, error)

// Transition is reported on every state change. Attempt is 1-based and only
// meaningful while attempting.
type Transition struct {
	State   LoginState
	Attempt int
	Err     error
}

// LoginFlow runs a login with a bounded number of attempts, each under its
// own deadline. States move Idle -> Attempting(n) -> Succeeded or
// Exhausted. A terminal rejection (bad credentials, bad input) drops back
// to Idle without further attempts.
type LoginFlow struct {
	login    LoginFunc
	timeouts []time.Duration
	pause    time.Duration
	observe  func(Transition)
	logger   *slog.Logger

	mu      sync.Mutex
	state   LoginState
	attempt int
}

type FlowOption func(*LoginFlow)

func WithAttemptTimeouts(ts ...time.Duration) FlowOption {
	return func(f *LoginFlow) {
		if len(ts) > 0 {
			f.timeouts = append([]time.Duration(nil), ts...)
		}
	}
}

func WithRetryPause(d time.Duration) FlowOption {
	return func(f *LoginFlow) { f.pause = d }
}

func WithObserver(fn func(Transition)) FlowOption {
	return func(f *LoginFlow) { f.observe = fn }
}

func WithFlowLogger(l *slog.Logger) FlowOption {
	return func(f *LoginFlow) { f.logger = l }
}

func NewLoginFlow(login LoginFunc, opts ...FlowOption) *LoginFlow {
	f := &LoginFlow{
		login:    login,
		timeouts: DefaultAttemptTimeouts,
		pause:    DefaultRetryPause,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// ClientLogin adapts Client.Login to a LoginFunc.
func ClientLogin(c *Client, email, password string) LoginFunc {
	return func(ctx context.Context) (*auth.Session, error) {
		return c.Login(ctx, email, password)
	}
}

func (f *LoginFlow) State() (LoginState, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.attempt
}

func (f *LoginFlow) transition(state LoginState, attempt int, err error) {
	f.mu.Lock()
	f.state, f.attempt = state, attempt
	f.mu.Unlock()
	f.logger.Debug("client.login.state", "state", state.String(), "attempt", attempt, "error", err)
	if f.observe != nil {
		f.observe(Transition{State: state, Attempt: attempt, Err: err})
	}
}

// Run drives the flow to a final state. It can be run again once it has
// finished.
func (f *LoginFlow) Run(ctx context.Context) (*auth.Session, error) {
	f.mu.Lock()
	if f.state == StateAttempting {
		f.mu.Unlock()
		return nil, ErrLoginInProgress
	}
	f.state = StateAttempting
	f.mu.Unlock()

	var lastErr error
	for i, timeout := range f.timeouts {
		n := i + 1
		f.transition(StateAttempting, n, nil)

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		sess, err := f.login(attemptCtx)
		cancel()
		if err == nil {
			f.transition(StateSucceeded, n, nil)
			f.logger.Info("client.login.ok", "attempt", n)
			return sess, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			f.transition(StateIdle, 0, ctx.Err())
			return nil, ctx.Err()
		}
		if terminal(err) {
			f.transition(StateIdle, 0, err)
			return nil, err
		}
		f.logger.Warn("client.login.attempt_failed", "attempt", n, "timeout", timeout, "error", err)

		if n < len(f.timeouts) && f.pause > 0 {
			timer := time.NewTimer(f.pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				f.transition(StateIdle, 0, ctx.Err())
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	f.transition(StateExhausted, len(f.timeouts), lastErr)
	return nil, errors.Join(ErrAttemptsExhausted, lastErr)
}

// terminal reports whether another attempt cannot change the answer. Only
// timeouts, transport errors and server-side failures are retried.
func terminal(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < http.StatusInternalServerError
	}
	return false
}
