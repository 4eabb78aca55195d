// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
)

// Observer is told about every fan-out. monitor.Monitor implements it.
type Observer interface {
	ObserveBroadcast(recipients int)
	IncSendFailures()
}

type nopObserver struct{}

func (nopObserver) ObserveBroadcast(int) {}
func (nopObserver) IncSendFailures()     {}

// SessionBroadcaster encodes a message once and queues it on each
// recipient's connection. Sends never block: a recipient whose queue is full
// is dropped by its connection and the room simply moves on.
type SessionBroadcaster struct {
	observer Observer
}

func NewSessionBroadcaster(observer Observer) *SessionBroadcaster {
	if observer == nil {
		observer = nopObserver{}
	}
	return &SessionBroadcaster{observer: observer}
}

// Broadcast sends env to every connected recipient, in the order given, and
// returns how many accepted it.
func (b *SessionBroadcaster) Broadcast(recipients []*session.Session, env *network.Envelope) int {
	data, err := network.Encode(env)
	if err != nil {
		logger.Log.Errorf("broadcast: encode %s failed: %v", env.Type, err)
		return 0
	}

	sent := 0
	for _, s := range recipients {
		if !s.IsConnected() {
			continue
		}
		if err := s.Send(data); err != nil {
			b.observer.IncSendFailures()
			logger.Log.Warnf("broadcast: %s seq %d to player %s failed: %v", env.Type, env.Seq, s.ID, err)
			continue
		}
		sent++
	}
	b.observer.ObserveBroadcast(sent)
	return sent
}

// SendTo sends env to one session only.
func (b *SessionBroadcaster) SendTo(s *session.Session, env *network.Envelope) error {
	data, err := network.Encode(env)
	if err != nil {
		return err
	}
	if err := s.Send(data); err != nil {
		b.observer.IncSendFailures()
		return err
	}
	return nil
}

// SendToConn sends env on a connection that has no session yet.
func SendToConn(conn network.Connection, env *network.Envelope) error {
	data, err := network.Encode(env)
	if err != nil {
		return err
	}
	return conn.Send(data)
}
