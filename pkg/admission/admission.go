// Package admission is the participant-side controller for entering a
// gathering's room: it decides between the waiting room and joining, drives
// credential fetching, and reconciles local device state with the call.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// State is the admission controller state.
type State string

const (
	StateCheckingStatus State = "checking_status"
	StateWaitingRoom    State = "waiting_room"
	StateTokenLoading   State = "token_loading"
	StateReadyToJoin    State = "ready_to_join"
	StateInCall         State = "in_call"
	StateEnded          State = "ended"
	StateError          State = "error"
)

// DefaultPollInterval is the waiting-room re-poll cadence.
const DefaultPollInterval = 3 * time.Second

// DefaultJoinRetries bounds transport-failure retries, each with a fresh token.
const DefaultJoinRetries = 2

// API is the slice of the session-service client the controller needs.
type API interface {
	Status(ctx context.Context, gatheringID string) (*model.SessionStatusResponse, error)
	StartSession(ctx context.Context, gatheringID string) (*model.StartSessionResponse, error)
	Token(ctx context.Context, gatheringID string) (*model.TokenResponse, error)
	EndSession(ctx context.Context, sessionID string) (*model.EndSessionResponse, error)
}

// Media is the local transport attachment. Implementations wrap the external
// provider SDK. Errors should carry errs.KindTransport for connection problems
// and errs.KindDevicePermission for camera/microphone acquisition failures so
// the controller can tell them apart.
type Media interface {
	// Join connects to the channel with a credential. Remote participants
	// render from here on, whether or not local publishing succeeds.
	Join(ctx context.Context, channel, token, uid string) error
	// AcquireDevices claims camera and microphone.
	AcquireDevices(ctx context.Context) error
	// Publish attaches the acquired local tracks to the channel.
	Publish(ctx context.Context) error
	SetCameraEnabled(on bool) error
	SetMicrophoneEnabled(on bool) error
	Leave() error
}

// Options configures a Controller.
type Options struct {
	GatheringID string
	API         API
	Media       Media
	Log         *zap.Logger

	// PollInterval is the waiting-room poll cadence (default 3s).
	PollInterval time.Duration
	// JoinRetries bounds transport retries (default 2).
	JoinRetries int
	// AutoStart makes a host start the session on entry if it is not live
	// yet; a conflict (someone else already started) is not an error.
	AutoStart bool
	// RequireConfirm keeps non-hosts in ReadyToJoin until Confirm is called
	// instead of attaching media immediately after the token arrives.
	RequireConfirm bool
}

// Controller is the admission state machine. One controller serves one room
// view; methods are safe for concurrent use but the lifecycle is sequential.
type Controller struct {
	opts Options
	log  *zap.Logger

	mu        sync.Mutex
	state     State
	isHost    bool
	sessionID string
	token     *model.TokenResponse
	lastErr   error
	deviceErr error
	cameraOn  bool
	micOn     bool
	confirmed chan struct{}
}

// New creates an admission controller.
func New(opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.JoinRetries <= 0 {
		opts.JoinRetries = DefaultJoinRetries
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		opts:      opts,
		log:       log,
		state:     StateCheckingStatus,
		cameraOn:  true,
		micOn:     true,
		confirmed: make(chan struct{}),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsHost reports whether the caller was identified as the gathering's host.
// Valid after the first status check.
func (c *Controller) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// SessionID returns the session instance the controller joined, when known.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Err returns the failure that moved the controller to StateError.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// DeviceErr returns the local device failure, if any. Device failures are
// reported separately from credential and transport failures and do not end
// the call.
func (c *Controller) DeviceErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceErr
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Info("admission state", zap.String("from", string(prev)), zap.String("to", string(s)))
	}
}

// canceled reports whether err stems from context cancellation. Cancellation
// is plain teardown (the user navigated away), never a StateError transition.
func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.state = StateError
	c.mu.Unlock()
	c.log.Warn("admission failed", zap.String("kind", string(errs.KindOf(err))), zap.Error(err))
	return err
}

// Run drives the state machine until the call is established (StateInCall),
// the context is cancelled, or a terminal failure occurs. Waiting-room
// polling stops the moment ctx is cancelled or a live session is observed.
func (c *Controller) Run(ctx context.Context) error {
	st, err := c.opts.API.Status(ctx, c.opts.GatheringID)
	if err != nil {
		if canceled(err) {
			return err
		}
		return c.fail(err)
	}
	c.mu.Lock()
	c.isHost = st.IsHost
	c.sessionID = st.SessionID
	c.mu.Unlock()

	// Hosts never wait.
	if !st.IsHost && !st.SessionStarted {
		c.setState(StateWaitingRoom)
		if err := c.waitForStart(ctx); err != nil {
			if canceled(err) {
				return err
			}
			return c.fail(err)
		}
	}

	if st.IsHost && c.opts.AutoStart && !st.SessionStarted {
		started, err := c.opts.API.StartSession(ctx, c.opts.GatheringID)
		switch {
		case err == nil:
			c.mu.Lock()
			c.sessionID = started.SessionID
			c.mu.Unlock()
		case errs.Is(err, errs.KindConflict):
			// Another start already won; proceed to token loading.
			c.log.Info("session already started elsewhere")
		case canceled(err):
			return err
		default:
			return c.fail(err)
		}
	}

	c.setState(StateTokenLoading)
	token, err := c.opts.API.Token(ctx, c.opts.GatheringID)
	if err != nil {
		if canceled(err) {
			return err
		}
		return c.fail(err)
	}
	c.mu.Lock()
	c.token = token
	if token.SessionID != "" {
		c.sessionID = token.SessionID
	}
	host := c.isHost
	c.mu.Unlock()

	if c.opts.RequireConfirm && !host {
		c.setState(StateReadyToJoin)
		select {
		case <-c.confirmed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.join(ctx, token); err != nil {
		if canceled(err) {
			return err
		}
		return c.fail(err)
	}
	c.setState(StateInCall)

	// Local publishing happens after the call is up: remote rendering never
	// waits on device acquisition, and a device failure is surfaced via
	// DeviceErr rather than tearing the call down.
	c.publishLocalTracks(ctx)
	return nil
}

// waitForStart polls status until a live session is observed. NotFound and
// Forbidden abort the wait; other errors are tolerated until the next tick.
func (c *Controller) waitForStart(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st, err := c.opts.API.Status(ctx, c.opts.GatheringID)
			if err != nil {
				kind := errs.KindOf(err)
				if kind == errs.KindNotFound || kind == errs.KindForbidden || kind == errs.KindUnauthenticated {
					return err
				}
				c.log.Warn("waiting-room poll failed, will retry", zap.Error(err))
				continue
			}
			if st.SessionStarted {
				c.mu.Lock()
				c.sessionID = st.SessionID
				c.mu.Unlock()
				return nil
			}
		}
	}
}

// join attaches to the channel, refetching a fresh token on each bounded
// transport retry.
func (c *Controller) join(ctx context.Context, token *model.TokenResponse) error {
	err := c.opts.Media.Join(ctx, token.Channel, token.Token, token.UID)
	if err == nil {
		return nil
	}
	for attempt := 1; attempt <= c.opts.JoinRetries && errs.Is(err, errs.KindTransport); attempt++ {
		c.log.Warn("transport join failed, retrying with fresh token",
			zap.Int("attempt", attempt), zap.Error(err))
		fresh, terr := c.opts.API.Token(ctx, c.opts.GatheringID)
		if terr != nil {
			return terr
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		err = c.opts.Media.Join(ctx, fresh.Channel, fresh.Token, fresh.UID)
	}
	return err
}

func (c *Controller) publishLocalTracks(ctx context.Context) {
	if err := c.opts.Media.AcquireDevices(ctx); err != nil {
		c.mu.Lock()
		c.deviceErr = err
		c.mu.Unlock()
		c.log.Warn("device acquisition failed", zap.Error(err))
		return
	}
	if err := c.opts.Media.Publish(ctx); err != nil {
		c.mu.Lock()
		c.deviceErr = err
		c.mu.Unlock()
		c.log.Warn("publish failed", zap.Error(err))
	}
}

// RetryPublish re-attempts device acquisition and local publishing after a
// device failure, e.g. once the user grants camera or microphone permission.
// The call stays up throughout; the new outcome is reported via DeviceErr and
// the return value.
func (c *Controller) RetryPublish(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInCall {
		c.mu.Unlock()
		return errs.Conflict("not in a call")
	}
	c.deviceErr = nil
	c.mu.Unlock()

	c.publishLocalTracks(ctx)
	return c.DeviceErr()
}

// Confirm releases a non-host controller held in ReadyToJoin.
func (c *Controller) Confirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.confirmed:
	default:
		close(c.confirmed)
	}
}

// ToggleCamera flips the local camera.
func (c *Controller) ToggleCamera() error {
	c.mu.Lock()
	on := !c.cameraOn
	c.cameraOn = on
	c.mu.Unlock()
	return c.opts.Media.SetCameraEnabled(on)
}

// ToggleMicrophone flips the local microphone.
func (c *Controller) ToggleMicrophone() error {
	c.mu.Lock()
	on := !c.micOn
	c.micOn = on
	c.mu.Unlock()
	return c.opts.Media.SetMicrophoneEnabled(on)
}

// Leave detaches this participant without mutating the session. Anyone can
// leave; only EndForEveryone terminates the session itself.
func (c *Controller) Leave() error {
	err := c.opts.Media.Leave()
	c.setState(StateEnded)
	return err
}

// EndForEveryone terminates the session for all participants. Host only, and
// the caller must pass confirmed=true from an explicit user confirmation.
// A conflict means the session already ended elsewhere; the local call still
// winds down normally.
func (c *Controller) EndForEveryone(ctx context.Context, confirmed bool) error {
	c.mu.Lock()
	host := c.isHost
	sessionID := c.sessionID
	c.mu.Unlock()

	if !host {
		return errs.Forbidden("only the host can end the session")
	}
	if !confirmed {
		return errs.E(errs.KindConflict, "ending the session requires confirmation")
	}
	if sessionID == "" {
		return errs.NotFound("no active session to end")
	}
	_, err := c.opts.API.EndSession(ctx, sessionID)
	if err != nil && !errs.Is(err, errs.KindConflict) {
		return err
	}
	return c.Leave()
}
