package daemon

import (
	"os"

	"github.com/matheus3301/wamd"
	"github.com/mdp/qrterminal/v3"
	"go.uber.org/zap"
)

// handler is the daemon's event consumer. It renders pairing QR codes in the
// terminal and logs everything else; a real gateway would translate events to
// its own protocol here.
type handler struct {
	logger *zap.Logger
}

func newHandler(logger *zap.Logger) *handler {
	return &handler{logger: logger}
}

func (h *handler) handle(kind wamd.EventKind, payload *wamd.EventPayload) {
	switch kind {
	case wamd.EventQRCode:
		h.logger.Info("scan the QR code to link this device")
		qrterminal.GenerateHalfBlock(payload.QRCode, qrterminal.L, os.Stdout)

	case wamd.EventPair:
		h.logger.Info("device paired", zap.String("device_id", payload.PairDeviceID))

	case wamd.EventConnect:
		if payload.Connect.Error != "" {
			h.logger.Warn("connection trouble", zap.String("error", payload.Connect.Error))
			return
		}
		h.logger.Info("connected", zap.String("jid", payload.Connect.JID))

	case wamd.EventLoggedOut:
		h.logger.Warn("logged out by the server; pair again to reconnect")

	case wamd.EventMessage:
		m := payload.Message
		h.logger.Info("message",
			zap.String("id", m.ID),
			zap.String("from", m.JID),
			zap.String("group", m.GroupJID),
			zap.Bool("carbon", m.IsCarbon))

	case wamd.EventReceipt:
		h.logger.Debug("receipt",
			zap.String("from", payload.Receipt.JID),
			zap.Strings("ids", payload.Receipt.MessageIDs))

	case wamd.EventContact:
		h.logger.Debug("contact",
			zap.String("jid", payload.Contact.JID),
			zap.String("name", payload.Contact.Name))

	case wamd.EventGroup:
		h.logger.Debug("group",
			zap.String("jid", payload.Group.JID),
			zap.Bool("full_sync", payload.GroupFullSync))

	case wamd.EventPresence:
		h.logger.Debug("presence", zap.String("jid", payload.Presence.JID))

	case wamd.EventChatState:
		h.logger.Debug("chat state", zap.String("jid", payload.ChatState.JID))

	case wamd.EventCall:
		h.logger.Info("call", zap.String("from", payload.Call.JID))
	}
}
