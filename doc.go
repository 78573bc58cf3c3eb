// Package wamd implements the client core for a multi-device messaging
// service: device pairing and storage, connection management with automatic
// reconnection, translation of server frames into a typed event stream, and
// the outbound command surface (messages, receipts, presence, groups,
// avatars, history backfill).
//
// A Manager owns the device store; each account gets one Session with one
// event handler. Events are delivered strictly in arrival order, one at a
// time; outbound calls are safe from any goroutine, including the handler.
//
//	m, err := wamd.NewManager(wamd.Config{DBPath: "devices.db"})
//	s, err := m.NewSession("15551234567@s.whatsapp.net", handleEvent)
//	err = s.Login(ctx)
//
// An unpaired session emits QRCode events until the user links the device;
// a paired one authenticates and starts delivering events immediately.
package wamd
