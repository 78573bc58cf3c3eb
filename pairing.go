package wamd

import (
	"encoding/base64"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/wamd/transport"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// PairState represents a session's pairing state. Idle is both the initial
// and the terminal state; a session may re-enter pairing after logout.
type PairState string

const (
	PairIdle         PairState = "IDLE"
	PairAwaitingScan PairState = "AWAITING_SCAN"
	PairAwaitingCode PairState = "AWAITING_CODE"
	PairPaired       PairState = "PAIRED"
)

// validPairTransitions defines allowed pairing state transitions.
var validPairTransitions = map[PairState][]PairState{
	PairIdle:         {PairAwaitingScan, PairAwaitingCode},
	PairAwaitingScan: {PairPaired, PairIdle},
	PairAwaitingCode: {PairPaired, PairIdle},
	PairPaired:       {PairIdle},
}

// How long a pairing attempt may run before it is abandoned. QR refs are
// re-issued by the server well inside this window (codes expire about every
// minute), so expiry here means the user never completed the link.
const pairTimeout = 3 * time.Minute

// pairer drives the linking flow for a new device. It does not talk to the
// transport itself; the session feeds it pair frames and reacts to its
// callbacks.
type pairer struct {
	logger *zap.Logger

	// onPaired runs when the server confirms the link.
	onPaired func(transport.PairSuccess)
	// onFailed runs when the attempt ends short of success.
	onFailed func(*PairingError)

	mu    sync.Mutex
	state PairState
	timer *time.Timer
}

func newPairer(logger *zap.Logger) *pairer {
	return &pairer{
		logger: logger,
		state:  PairIdle,
	}
}

// State returns the current pairing state.
func (p *pairer) State() PairState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *pairer) transitionLocked(to PairState) error {
	allowed := validPairTransitions[p.state]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid pairing transition from %s to %s", p.state, to)
	}
	p.logger.Debug("pairing state change",
		zap.String("from", string(p.state)),
		zap.String("to", string(to)))
	p.state = to
	return nil
}

// begin moves idle -> awaiting_scan/awaiting_code and arms the attempt
// timeout.
func (p *pairer) begin(to PairState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transitionLocked(to); err != nil {
		return err
	}
	p.timer = time.AfterFunc(pairTimeout, func() { p.fail(PairingTimeout) })
	return nil
}

// awaiting reports whether a pairing attempt is in flight.
func (p *pairer) awaiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == PairAwaitingScan || p.state == PairAwaitingCode
}

// acceptRef reports whether a fresh QR ref should be surfaced; refs arriving
// outside an active QR attempt are stale and dropped.
func (p *pairer) acceptRef() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == PairAwaitingScan
}

// succeed handles the server's pairing confirmation: paired, then back to
// idle, then the onPaired callback.
func (p *pairer) succeed(ps transport.PairSuccess) {
	p.mu.Lock()
	if err := p.transitionLocked(PairPaired); err != nil {
		p.mu.Unlock()
		p.logger.Warn("unexpected pairing confirmation", zap.String("state", string(p.state)))
		return
	}
	p.stopTimerLocked()
	_ = p.transitionLocked(PairIdle)
	p.mu.Unlock()

	if p.onPaired != nil {
		p.onPaired(ps)
	}
}

// fail aborts the attempt with the given failure class and returns to idle.
func (p *pairer) fail(reason PairingFailure) {
	p.mu.Lock()
	if p.state != PairAwaitingScan && p.state != PairAwaitingCode {
		p.mu.Unlock()
		return
	}
	p.stopTimerLocked()
	_ = p.transitionLocked(PairIdle)
	p.mu.Unlock()

	if p.onFailed != nil {
		p.onFailed(&PairingError{Reason: reason})
	}
}

// cancel silently abandons any in-flight attempt, without a failure event.
func (p *pairer) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PairAwaitingScan || p.state == PairAwaitingCode {
		p.stopTimerLocked()
		_ = p.transitionLocked(PairIdle)
	}
}

func (p *pairer) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// qrPayload composes a server pairing ref and the device public key into the
// payload rendered as a QR code.
func qrPayload(ref string, publicKey []byte) string {
	return ref + "," + base64.StdEncoding.EncodeToString(publicKey)
}

// RenderQRCodePNG renders a QR pairing payload (as delivered by EventQRCode)
// into a PNG image of the given pixel size, for consumers that display the
// code outside a terminal.
func RenderQRCodePNG(payload string, size int) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render QR code: %w", err)
	}
	return png, nil
}
