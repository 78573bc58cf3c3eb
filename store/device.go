package store

import (
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"fmt"
	"time"
)

// A Device is the durable identity of one linked device: its signing key
// pair, registration ID and, once pairing completes, the server-assigned
// device ID. Exactly one Device exists per account.
type Device struct {
	Account        string
	DeviceID       string // Assigned by the server on pairing; empty before.
	RegistrationID uint32
	IdentityPub    ed25519.PublicKey
	IdentityPriv   ed25519.PrivateKey
}

// NewDevice generates a fresh, unpaired device identity for the account.
func NewDevice(account string) (*Device, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity key: %w", err)
	}

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("generate registration ID: %w", err)
	}

	return &Device{
		Account:        account,
		RegistrationID: binary.BigEndian.Uint32(buf[:]),
		IdentityPub:    pub,
		IdentityPriv:   priv,
	}, nil
}

// Paired reports whether the device has completed pairing.
func (d *Device) Paired() bool {
	return d.DeviceID != ""
}

// Sign signs the given data with the device identity key.
func (d *Device) Sign(data []byte) []byte {
	return ed25519.Sign(d.IdentityPriv, data)
}

// LoadDevice returns the stored device for the account, or nil if the account
// has never paired.
func (db *DB) LoadDevice(account string) (*Device, error) {
	d := Device{Account: account}
	err := db.QueryRow(`
		SELECT device_id, registration_id, identity_pub, identity_priv
		FROM devices WHERE account = ?`, account).
		Scan(&d.DeviceID, &d.RegistrationID, (*[]byte)(&d.IdentityPub), (*[]byte)(&d.IdentityPriv))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	return &d, nil
}

// SaveDevice inserts or replaces the device record for its account. The
// write is a single upsert statement, so a failure never leaves a partial
// record behind. Callers must serialize writes per account.
func (db *DB) SaveDevice(d *Device) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO devices (account, device_id, registration_id, identity_pub, identity_priv, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			device_id = excluded.device_id,
			registration_id = excluded.registration_id,
			identity_pub = excluded.identity_pub,
			identity_priv = excluded.identity_priv,
			updated_at = excluded.updated_at`,
		d.Account, d.DeviceID, d.RegistrationID, []byte(d.IdentityPub), []byte(d.IdentityPriv), now, now)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

// DeleteDevice removes the device record for the account, typically after an
// explicit logout invalidated it.
func (db *DB) DeleteDevice(account string) error {
	if _, err := db.Exec(`DELETE FROM devices WHERE account = ?`, account); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}
