package wamd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/matheus3301/wamd/store"
	"github.com/matheus3301/wamd/transport"
	"github.com/matheus3301/wamd/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// How often contact presence subscriptions are refreshed while our own
// presence is available. The server drops presence feeds for sessions that
// never re-request them; the interval is jittered by ± half its value so
// refreshes don't look mechanical.
const presenceRefreshInterval = 12 * time.Hour

// A Session is the runtime binding of one paired device to a connection.
// All inbound activity is delivered to the single registered handler in
// frame-arrival order; outbound calls may be issued concurrently from any
// goroutine, including the handler itself.
type Session struct {
	account string
	db      *store.DB
	logger  *zap.Logger

	conn       *connManager
	pair       *pairer
	dispatcher *dispatcher
	roster     *Roster
	groupFetch singleflight.Group

	mu         sync.Mutex
	device     *store.Device
	presenceCh chan types.PresenceKind
}

func newSession(account string, handler HandleEventFunc, db *store.DB, cfg Config, logger *zap.Logger) *Session {
	s := &Session{
		account: account,
		db:      db,
		logger:  logger.With(zap.String("account", account)),
		roster:  newRoster(),
	}
	s.dispatcher = newDispatcher(handler, s.applyToRoster, s.logger)

	s.pair = newPairer(s.logger)
	s.pair.onPaired = s.handlePaired
	s.pair.onFailed = s.handlePairingFailed

	s.conn = newConnManager(cfg.URL, cfg.Dialer, cfg.ReconnectAttempts, s.logger)
	s.conn.onFrame = s.handleFrame
	s.conn.authenticate = s.authenticate
	s.conn.onDown = func(err error) {
		s.dispatcher.push(EventConnect, &EventPayload{Connect: Connect{JID: s.account, Error: err.Error()}})
	}
	return s
}

// Account returns the account JID this session serves.
func (s *Session) Account() string {
	return s.account
}

// State returns the current connection state.
func (s *Session) State() ConnState {
	return s.conn.State()
}

// PairingState returns the current pairing state.
func (s *Session) PairingState() PairState {
	return s.pair.State()
}

// Roster returns the session's contact and group cache.
func (s *Session) Roster() *Roster {
	return s.roster
}

// Login connects the session. A paired device authenticates and resumes; an
// unpaired one starts the QR linking flow, emitting QRCode events until the
// user completes the link (or PairPhone is called instead).
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	if s.device == nil {
		d, err := s.db.LoadDevice(s.account)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if d == nil {
			if d, err = store.NewDevice(s.account); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.device = d
	}
	device := s.device
	s.mu.Unlock()

	if err := s.conn.Connect(ctx); err != nil {
		return err
	}

	if !device.Paired() {
		return s.startQRPairing(ctx, device)
	}
	return nil
}

// Disconnect detaches the transport without touching the stored device.
// In-flight calls fail with ErrNotConnected; any pairing attempt is
// abandoned silently.
func (s *Session) Disconnect() {
	s.pair.cancel()
	s.conn.Disconnect()
	s.mu.Lock()
	s.stopPresenceLoopLocked()
	s.mu.Unlock()
}

// Logout invalidates the server-side device registration, disconnects, and
// removes the stored device. The session needs a fresh pairing to log in
// again.
func (s *Session) Logout(ctx context.Context) error {
	if _, err := s.conn.request(ctx, transport.TypeLogout, struct{}{}); err != nil && !errors.Is(err, ErrNotConnected) {
		s.logger.Warn("server-side logout failed", zap.Error(err))
	}
	s.Disconnect()

	s.mu.Lock()
	s.device = nil
	s.mu.Unlock()
	return s.db.DeleteDevice(s.account)
}

// PairPhone requests a one-time pairing code for manual entry on the user's
// primary device, identified by phone number. Exactly one server round trip
// is made per attempt; confirmation still arrives asynchronously as a Pair
// event. Any QR attempt in flight is abandoned.
func (s *Session) PairPhone(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("cannot pair with empty phone number")
	}
	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil {
		return "", fmt.Errorf("cannot pair before login")
	}
	if device.Paired() {
		return "", fmt.Errorf("refusing to pair an already-paired device")
	}

	s.pair.cancel()
	if err := s.pair.begin(PairAwaitingCode); err != nil {
		return "", err
	}

	f, err := s.conn.request(ctx, transport.TypePairCode, transport.PairCodeRequest{
		Phone:     phone,
		PublicKey: device.IdentityPub,
	})
	if err != nil {
		s.pair.fail(pairingFailureFor(err))
		return "", err
	}

	var result transport.PairCodeResult
	if err := transport.Unmarshal(f.Data, &result); err != nil {
		s.pair.fail(PairingRejected)
		return "", &ProtocolError{FrameType: transport.TypePairCode, Err: err}
	}
	return result.Code, nil
}

func (s *Session) startQRPairing(ctx context.Context, device *store.Device) error {
	if err := s.pair.begin(PairAwaitingScan); err != nil {
		return err
	}
	_, err := s.conn.request(ctx, transport.TypePairStart, transport.PairStartRequest{
		PublicKey: device.IdentityPub,
	})
	if err != nil {
		s.pair.fail(pairingFailureFor(err))
		return err
	}
	return nil
}

func pairingFailureFor(err error) PairingFailure {
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrCancelled) {
		return PairingTransportClosed
	}
	return PairingRejected
}

// authenticate runs after every successful dial, including automatic
// reconnects. Unpaired devices skip it; pairing establishes the server-side
// session on its own.
func (s *Session) authenticate(ctx context.Context) error {
	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil || !device.Paired() {
		return nil
	}

	sig := device.Sign([]byte(device.Account + "|" + device.DeviceID))
	_, err := s.conn.request(ctx, transport.TypeAuth, transport.AuthRequest{
		Account:        device.Account,
		DeviceID:       device.DeviceID,
		RegistrationID: device.RegistrationID,
		Signature:      sig,
	})
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	s.dispatcher.push(EventConnect, &EventPayload{Connect: Connect{JID: s.account}})
	s.startPresenceLoop()
	return nil
}

// handleFrame receives every unsolicited inbound frame on the read-loop
// goroutine. Pairing frames drive the pairing machine directly; everything
// else is translated and queued for the dispatcher.
func (s *Session) handleFrame(f transport.Frame) {
	switch f.Type {
	case transport.TypePairRef:
		var ref transport.PairRef
		if err := transport.Unmarshal(f.Data, &ref); err != nil {
			s.logger.Warn("dropping bad frame", zap.String("type", f.Type), zap.Error(err))
			return
		}
		if !s.pair.acceptRef() {
			return
		}
		s.mu.Lock()
		var pub []byte
		if s.device != nil {
			pub = s.device.IdentityPub
		}
		s.mu.Unlock()
		s.dispatcher.push(EventQRCode, &EventPayload{QRCode: qrPayload(ref.Ref, pub)})

	case transport.TypePairSuccess:
		var ps transport.PairSuccess
		if err := transport.Unmarshal(f.Data, &ps); err != nil {
			s.logger.Warn("dropping bad frame", zap.String("type", f.Type), zap.Error(err))
			return
		}
		if ps.DeviceID == "" {
			s.logger.Error("pairing confirmation without device ID")
			return
		}
		s.pair.succeed(ps)

	case transport.TypePairError:
		reason := PairingRejected
		if f.Error != nil && f.Error.Code == transport.CodeTimeout {
			reason = PairingTimeout
		}
		s.pair.fail(reason)

	case transport.TypeLoggedOut:
		s.handleLoggedOut()

	default:
		events, err := translateFrame(f)
		if err != nil {
			s.logger.Warn("dropping bad frame", zap.String("type", f.Type), zap.Error(err))
			return
		}
		for _, e := range events {
			s.dispatcher.push(e.kind, e.payload)
		}
	}
}

// handlePaired persists the confirmed device identity and announces the
// authenticated connection.
func (s *Session) handlePaired(ps transport.PairSuccess) {
	s.mu.Lock()
	device := s.device
	if device == nil {
		s.mu.Unlock()
		s.logger.Error("pairing confirmed for a session without a device")
		return
	}
	device.DeviceID = ps.DeviceID
	if ps.RegistrationID != 0 {
		device.RegistrationID = ps.RegistrationID
	}
	err := s.db.SaveDevice(device)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("failed to persist paired device", zap.Error(err))
	}

	s.logger.Info("device paired", zap.String("device_id", ps.DeviceID))
	s.dispatcher.push(EventPair, &EventPayload{PairDeviceID: ps.DeviceID})
	s.dispatcher.push(EventConnect, &EventPayload{Connect: Connect{JID: s.account}})
	s.startPresenceLoop()
}

// handlePairingFailed surfaces the failure as a Connect error; pairing
// failures are one of the two conditions that must reach the human user.
func (s *Session) handlePairingFailed(pe *PairingError) {
	s.logger.Warn("pairing failed", zap.String("reason", string(pe.Reason)))
	s.dispatcher.push(EventConnect, &EventPayload{Connect: Connect{JID: s.account, Error: pe.Error()}})
	s.conn.Disconnect()
}

// handleLoggedOut drops the invalidated device state. The connection
// manager has already parked itself in LoggedOut and will not redial.
func (s *Session) handleLoggedOut() {
	s.mu.Lock()
	if err := s.db.DeleteDevice(s.account); err != nil {
		s.logger.Warn("unable to delete device state on logout", zap.Error(err))
	}
	s.device = nil
	s.stopPresenceLoopLocked()
	s.mu.Unlock()

	s.dispatcher.push(EventLoggedOut, &EventPayload{})
}

// applyToRoster runs on the dispatch goroutine before the consumer handler,
// keeping all cache writes on the single event-consumer thread.
func (s *Session) applyToRoster(kind EventKind, payload *EventPayload) {
	switch kind {
	case EventContact:
		s.roster.UpsertContact(payload.Contact)
	case EventGroup:
		s.roster.ApplyGroup(payload.Group, payload.GroupFullSync)
	}
}

// close shuts the session down completely; used when the owning manager is
// torn down or the account unregisters.
func (s *Session) close() {
	s.Disconnect()
	s.dispatcher.close()
}

func (s *Session) startPresenceLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presenceCh != nil {
		return
	}
	ch := make(chan types.PresenceKind, 1)
	s.presenceCh = ch
	go s.presenceLoop(ch)
}

func (s *Session) stopPresenceLoopLocked() {
	if s.presenceCh != nil {
		close(s.presenceCh)
		s.presenceCh = nil
	}
}

func (s *Session) presenceLoop(ch chan types.PresenceKind) {
	newTimer := func(d time.Duration) *time.Timer {
		return time.NewTimer(d + time.Duration(rand.Int63n(int64(d))) - d/2)
	}
	timer := newTimer(presenceRefreshInterval)
	defer timer.Stop()

	presence := types.PresenceAvailable
	paused := false
	for {
		select {
		case <-timer.C:
			if presence == types.PresenceAvailable {
				s.refreshContacts()
				timer = newTimer(presenceRefreshInterval)
			} else {
				paused = true
			}
		case p, ok := <-ch:
			if !ok {
				return
			}
			if paused && p == types.PresenceAvailable {
				s.refreshContacts()
				timer = newTimer(presenceRefreshInterval)
				paused = false
			}
			presence = p
		}
	}
}

func (s *Session) refreshContacts() {
	if _, err := s.GetContacts(context.Background(), false); err != nil {
		s.logger.Debug("presence refresh failed", zap.Error(err))
	}
}
