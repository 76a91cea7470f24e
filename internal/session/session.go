// Package session owns the local view of the user's authentication and
// balance state. Every mutation goes through a remote call first; local
// state is only reconciled from the server's authoritative response, and a
// failed call leaves the state exactly as it was.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vendo-client/internal/domain/user"
	"github.com/xenking/vendo-client/pkg/inflight"
)

// Service is the slice of the remote vending API the session state needs.
type Service interface {
	CurrentUser(ctx context.Context) (user.User, error)
	Login(ctx context.Context, creds user.Credentials) (user.User, error)
	Register(ctx context.Context, creds user.Credentials) (user.User, error)
	Logout(ctx context.Context) error
	Deposit(ctx context.Context, denomination int64) (int64, error)
	ResetDeposit(ctx context.Context) ([]int64, error)
}

// Phase is the session lifecycle state. The only legal transitions are
// Unresolved -> Anonymous|Authenticated (once, via Resolve),
// Anonymous -> Authenticated (login/register) and
// Authenticated -> Anonymous (logout).
type Phase int

const (
	// PhaseUnresolved means the startup identity probe has not completed.
	PhaseUnresolved Phase = iota
	// PhaseAnonymous means no session exists.
	PhaseAnonymous
	// PhaseAuthenticated means a valid session exists and User is populated.
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unresolved"
	}
}

// Session is an immutable snapshot of the session state.
type Session struct {
	Phase Phase
	User  user.User
}

// Checked reports whether the initial identity probe has completed.
func (s Session) Checked() bool { return s.Phase != PhaseUnresolved }

// Authenticated reports whether a valid session exists.
func (s Session) Authenticated() bool { return s.Phase == PhaseAuthenticated }

// Sentinel errors for illegal session transitions. These are caller contract
// violations, rejected before any remote call.
var (
	ErrAlreadyResolved      = errors.New("session already resolved")
	ErrAlreadyAuthenticated = errors.New("already logged in")
	ErrNotAuthenticated     = errors.New("not logged in")
)

// InvalidDenominationError indicates a deposit of a coin the machine does
// not accept.
type InvalidDenominationError struct {
	Denomination int64
}

func (e *InvalidDenominationError) Error() string {
	return fmt.Sprintf("denomination %d not accepted; allowed coins are 5, 10, 20, 50 and 100 cents", e.Denomination)
}

// State holds the session and funnels every mutation through the remote
// service. One remote mutation may be in flight at a time; a second call
// while one is pending fails with inflight.ErrConflict so rapid repeated
// actions cannot interleave.
type State struct {
	svc   Service
	guard *inflight.Slot

	mu      sync.Mutex
	session Session
}

// NewState returns a State in the unresolved phase.
func NewState(svc Service) *State {
	return &State{
		svc:   svc,
		guard: inflight.NewSlot(),
	}
}

// Snapshot returns a copy of the current session.
func (s *State) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Resolve performs the one-time startup identity probe. A failing probe is
// the normal signal for "no active session": it is logged, not surfaced, and
// the session still counts as checked. Calling Resolve twice is an error.
func (s *State) Resolve(ctx context.Context) error {
	if err := s.guard.TryAcquire(); err != nil {
		return err
	}
	defer s.guard.Release()

	s.mu.Lock()
	if s.session.Phase != PhaseUnresolved {
		s.mu.Unlock()
		return ErrAlreadyResolved
	}
	s.mu.Unlock()

	u, err := s.svc.CurrentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		zctx.From(ctx).Debug("no active session", zap.Error(err))
		s.session = Session{Phase: PhaseAnonymous}
		return nil
	}
	s.session = Session{Phase: PhaseAuthenticated, User: u}
	return nil
}

// Login authenticates with the given credentials. On success the session
// becomes authenticated with the server-returned identity; on failure the
// state is untouched and the classified error goes back to the caller.
func (s *State) Login(ctx context.Context, creds user.Credentials) (user.User, error) {
	return s.authenticate(ctx, creds, s.svc.Login)
}

// Register creates an account and authenticates in one step. The contract
// is identical to Login.
func (s *State) Register(ctx context.Context, creds user.Credentials) (user.User, error) {
	return s.authenticate(ctx, creds, s.svc.Register)
}

func (s *State) authenticate(
	ctx context.Context,
	creds user.Credentials,
	call func(context.Context, user.Credentials) (user.User, error),
) (user.User, error) {
	if err := creds.Validate(); err != nil {
		return user.User{}, err
	}
	if err := s.guard.TryAcquire(); err != nil {
		return user.User{}, err
	}
	defer s.guard.Release()

	if s.Snapshot().Phase == PhaseAuthenticated {
		return user.User{}, ErrAlreadyAuthenticated
	}

	u, err := call(ctx, creds)
	if err != nil {
		return user.User{}, err
	}

	s.mu.Lock()
	s.session = Session{Phase: PhaseAuthenticated, User: u}
	s.mu.Unlock()
	return u, nil
}

// Deposit inserts one coin. The denomination must be one of the accepted
// coin values; anything else is rejected before the remote call. The new
// balance is taken from the server's response, never computed locally, so a
// concurrent mutation on the server side cannot desynchronize us.
func (s *State) Deposit(ctx context.Context, denomination int64) (int64, error) {
	if !user.ValidDenomination(denomination) {
		return 0, &InvalidDenominationError{Denomination: denomination}
	}
	if err := s.guard.TryAcquire(); err != nil {
		return 0, err
	}
	defer s.guard.Release()

	if !s.Snapshot().Authenticated() {
		return 0, ErrNotAuthenticated
	}

	balance, err := s.svc.Deposit(ctx, denomination)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.session.User.Deposit = balance
	s.mu.Unlock()
	return balance, nil
}

// ResetDeposit returns the whole balance as change. On success the balance
// is zeroed and the server's change breakdown is returned for display.
func (s *State) ResetDeposit(ctx context.Context) ([]int64, error) {
	if err := s.guard.TryAcquire(); err != nil {
		return nil, err
	}
	defer s.guard.Release()

	if !s.Snapshot().Authenticated() {
		return nil, ErrNotAuthenticated
	}

	change, err := s.svc.ResetDeposit(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.session.User.Deposit = 0
	s.mu.Unlock()
	return change, nil
}

// Sync re-reads the identity from the server while authenticated, picking up
// balance changes made by other operations (a purchase, for instance). On
// failure the local view is kept as is.
func (s *State) Sync(ctx context.Context) error {
	if err := s.guard.TryAcquire(); err != nil {
		return err
	}
	defer s.guard.Release()

	if !s.Snapshot().Authenticated() {
		return ErrNotAuthenticated
	}

	u, err := s.svc.CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.session.User = u
	s.mu.Unlock()
	return nil
}

// Logout ends the session. The local state is reset only after the server
// confirms: resetting on failure would desynchronize us from a session that
// is still valid remotely.
func (s *State) Logout(ctx context.Context) error {
	if err := s.guard.TryAcquire(); err != nil {
		return err
	}
	defer s.guard.Release()

	if !s.Snapshot().Authenticated() {
		return ErrNotAuthenticated
	}

	if err := s.svc.Logout(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = Session{Phase: PhaseAnonymous}
	s.mu.Unlock()
	return nil
}
