package wamd

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/matheus3301/wamd/store"
	"github.com/matheus3301/wamd/transport"
	"go.uber.org/zap"
)

// DefaultServiceURL is the production websocket endpoint.
const DefaultServiceURL = "wss://web.whatsapp.com/ws/chat"

// Config carries everything a Manager needs. Only DBPath is mandatory.
type Config struct {
	// DBPath is the SQLite file holding paired-device identities.
	DBPath string
	// URL overrides the service endpoint; defaults to DefaultServiceURL.
	URL string
	// Dialer overrides the transport; defaults to the websocket dialer.
	Dialer transport.Dialer
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// ReconnectAttempts bounds automatic redials after an unexpected drop.
	// Zero means the default ceiling.
	ReconnectAttempts int
}

// A Manager owns the device store and the set of live sessions, one per
// account. It is the entry point of the package: open a Manager once, then
// create a Session per account to serve.
type Manager struct {
	cfg    Config
	db     *store.DB
	lock   *store.Lock
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager opens the device store, runs pending schema migrations, and
// takes the store's exclusive lock so two processes never share one device
// database.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("device store path is required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultServiceURL
	}
	if cfg.Dialer == nil {
		cfg.Dialer = transport.DialWebsocket
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	lock, err := store.AcquireLock(filepath.Dir(cfg.DBPath))
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	res, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		_ = lock.Release()
		return nil, err
	}
	if res.Changed {
		cfg.Logger.Info("device store migrated", zap.Uint("version", res.Version))
	}

	return &Manager{
		cfg:      cfg,
		db:       db,
		lock:     lock,
		logger:   cfg.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

// NewSession creates (or returns the existing) session for the account. The
// handler receives every event for the account, one at a time, in arrival
// order; it is fixed for the session's lifetime.
func (m *Manager) NewSession(account string, handler HandleEventFunc) (*Session, error) {
	if account == "" {
		return nil, fmt.Errorf("account JID is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("manager is closed")
	}
	if s, ok := m.sessions[account]; ok {
		return s, nil
	}

	s := newSession(account, handler, m.db, m.cfg, m.logger)
	m.sessions[account] = s
	return s, nil
}

// RemoveSession disconnects and discards the account's session without
// touching its stored device. A later NewSession starts fresh.
func (m *Manager) RemoveSession(account string) {
	m.mu.Lock()
	s := m.sessions[account]
	delete(m.sessions, account)
	m.mu.Unlock()

	if s != nil {
		s.close()
	}
}

// Close shuts down every session and releases the device store.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = nil
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}

	err := m.db.Close()
	if lerr := m.lock.Release(); err == nil {
		err = lerr
	}
	return err
}
