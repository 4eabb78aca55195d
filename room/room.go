// room/room.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/engine"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/models"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
	"github.com/wfunc/roomsync/state"
	"github.com/wfunc/roomsync/timer"
)

// Options are the per-room rules shared by every room of a registry.
type Options struct {
	MinPlayers        int
	MaxPlayers        int
	CodeLength        int
	GracePeriod       time.Duration
	IdleTimeout       time.Duration
	PausePolicy       string
	GraceExpiryPolicy string
	ReconnectKey      string
	RequireReady      bool
	ChatMaxLength     int
	ChatMaxPerMinute  int
	ChatHistorySize   int
}

func NewOptions(cfg *config.Config) Options {
	return Options{
		MinPlayers:        cfg.Room.MinPlayers,
		MaxPlayers:        cfg.Room.MaxPlayers,
		CodeLength:        cfg.Room.CodeLength,
		GracePeriod:       cfg.Room.GracePeriod,
		IdleTimeout:       cfg.Room.IdleTimeout,
		PausePolicy:       cfg.Room.PausePolicy,
		GraceExpiryPolicy: cfg.Room.GraceExpiryPolicy,
		ReconnectKey:      cfg.Room.ReconnectKey,
		RequireReady:      cfg.Room.RequireReady,
		ChatMaxLength:     cfg.Chat.MaxLength,
		ChatMaxPerMinute:  cfg.Chat.MaxPerMinute,
		ChatHistorySize:   cfg.Chat.HistorySize,
	}
}

func DefaultOptions() Options {
	return NewOptions(config.Default())
}

// Room is one game instance. Every exported method takes the room lock, so
// all mutations, and the enqueueing of the broadcasts they produce, happen
// one at a time.
type Room struct {
	Code      string
	Name      string
	CreatedAt time.Time

	opts        Options
	engine      Engine
	broadcaster Broadcaster
	scheduler   timer.Scheduler
	recorder    Recorder
	onClose     func(*Room)

	mutex   sync.Mutex
	machine *state.Machine
	players []*session.Session // turn order
	state   json.RawMessage
	seq     uint64
	turn    int
	actions int
	chat    *ChatFilter
	history []network.ChatLine // oldest first, at most ChatHistorySize
	closed  bool

	// Generations let a timer that already fired recognise it was
	// superseded while it waited for the lock.
	graceGen   map[string]uint64
	idleGen    uint64
	cancelIdle func() bool
}

func newRoom(code, name string, m *Manager) *Room {
	r := &Room{
		Code:        code,
		Name:        name,
		CreatedAt:   time.Now(),
		opts:        m.opts,
		engine:      m.engine,
		broadcaster: m.broadcaster,
		scheduler:   m.scheduler,
		recorder:    m.recorder,
		onClose:     m.forget,
		chat:        NewChatFilter(m.opts.ChatMaxLength, m.opts.ChatMaxPerMinute),
		graceGen:    make(map[string]uint64),
	}
	r.machine = state.NewRoomMachine(func() bool { return r.actions == 0 })
	r.machine.OnChange(func(from, to state.Status) {
		logger.Log.Infof("room %s: %s -> %s", r.Code, from, to)
	})
	r.armIdleLocked()
	r.recordLocked(models.EventRoomCreated, "", name)
	return r
}

// Join adds a new player, or reattaches a returning one matched by the
// configured reconnection key.
func (r *Room) Join(name, token string, conn network.Connection) (*session.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrBadRequest)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, r.Code)
	}

	s, err := r.matchLocked(name, token)
	if err != nil {
		return nil, err
	}
	if s != nil {
		r.reconnectLocked(s, conn)
		return s, nil
	}

	if len(r.players) >= r.opts.MaxPlayers {
		return nil, fmt.Errorf("%w: %s has %d players", ErrRoomFull, r.Code, len(r.players))
	}
	if status := r.machine.Current(); status != state.Waiting {
		return nil, fmt.Errorf("%w: %s is %s", ErrRoomAlreadyInProgress, r.Code, status)
	}

	s = session.NewSession(r.Code, name, conn)
	if len(r.players) == 0 {
		s.SetHost(true)
	}
	r.players = append(r.players, s)
	logger.Log.Infof("room %s: player %s (%s) joined, %d players", r.Code, s.ID, s.Name, len(r.players))

	r.welcomeLocked(s)
	r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})
	r.recordLocked(models.EventPlayerJoined, s.ID, s.Name)
	r.armIdleLocked()
	return s, nil
}

func (r *Room) matchLocked(name, token string) (*session.Session, error) {
	if token != "" {
		for _, s := range r.players {
			if s.Token == token {
				return s, nil
			}
		}
	}
	for _, s := range r.players {
		if !strings.EqualFold(s.Name, name) {
			continue
		}
		if r.opts.ReconnectKey == config.ReconnectByName && !s.IsConnected() {
			return s, nil
		}
		if status := r.machine.Current(); status != state.Waiting {
			return nil, fmt.Errorf("%w: %s is %s", ErrRoomAlreadyInProgress, r.Code, status)
		}
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	return nil, nil
}

func (r *Room) reconnectLocked(s *session.Session, conn network.Connection) {
	prev := s.Attach(conn)
	r.graceGen[s.ID]++
	if prev != nil && prev != conn {
		if data, err := network.Encode(network.NewError(network.KindSessionReplaced, "joined from another connection")); err == nil {
			prev.CloseWithNotice(data)
		}
	}
	logger.Log.Infof("room %s: player %s (%s) reconnected", r.Code, s.ID, s.Name)

	// The returning client gets the full state before anything else.
	r.welcomeLocked(s)
	r.reconcileLocked()
	r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})
	r.armIdleLocked()
}

// Leave removes s from the room. Leaving twice is a no-op.
func (r *Room) Leave(s *session.Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || !slices.Contains(r.players, s) {
		return
	}
	logger.Log.Infof("room %s: player %s (%s) left", r.Code, s.ID, s.Name)
	r.removeLocked(s, "left the room")
}

// Disconnect handles the loss of conn. It is ignored if s has already been
// reattached to another connection. The session keeps its slot until it
// reconnects or its grace period runs out.
func (r *Room) Disconnect(s *session.Session, conn network.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || !slices.Contains(r.players, s) || !s.Detach(conn) {
		return
	}
	logger.Log.Infof("room %s: player %s (%s) disconnected", r.Code, s.ID, s.Name)

	r.scheduleGraceLocked(s)
	r.reconcileLocked()
	r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})

	if r.machine.Current() == state.Finished && r.connectedLocked() == 0 {
		r.closeLocked("")
	}
}

func (r *Room) scheduleGraceLocked(s *session.Session) {
	r.graceGen[s.ID]++
	gen := r.graceGen[s.ID]
	s.SetGrace(r.scheduler.AfterFunc(r.opts.GracePeriod, func() {
		r.expireGrace(s, gen)
	}))
}

func (r *Room) expireGrace(s *session.Session, gen uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || r.graceGen[s.ID] != gen || s.Status() != session.StatusDisconnected {
		return
	}
	logger.Log.Infof("room %s: grace period expired for player %s (%s)", r.Code, s.ID, s.Name)

	status := r.machine.Current()
	if (status == state.InProgress || status == state.Paused) && r.opts.GraceExpiryPolicy == config.ExpiryEndGame {
		r.finishLocked(fmt.Sprintf("%s did not come back", s.Name))
		if r.closed {
			return
		}
	}
	r.removeLocked(s, "grace period expired")
}

// removeLocked takes s out of the turn order for good.
func (r *Room) removeLocked(s *session.Session, reason string) {
	idx := slices.Index(r.players, s)
	if idx < 0 {
		return
	}
	wasHost := s.IsHost()
	s.Remove()
	s.SetHost(false)
	r.graceGen[s.ID]++
	r.chat.Forget(s.ID)
	r.players = slices.Delete(r.players, idx, idx+1)
	r.recordLocked(models.EventPlayerLeft, s.ID, reason)

	if len(r.players) == 0 {
		r.closeLocked("")
		return
	}
	if wasHost {
		next := r.players[idx%len(r.players)]
		next.SetHost(true)
		logger.Log.Infof("room %s: host passed to %s (%s)", r.Code, next.ID, next.Name)
	}

	status := r.machine.Current()
	if status != state.InProgress && status != state.Paused {
		r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})
		if status == state.Finished && r.connectedLocked() == 0 {
			r.closeLocked("")
		}
		return
	}

	if r.opts.GraceExpiryPolicy == config.ExpiryEndGame {
		r.fixTurnLocked(idx)
		r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})
		r.finishLocked(fmt.Sprintf("%s left the game", s.Name))
		return
	}

	var out engine.Outcome
	err := r.guard("drop", func() (err error) {
		out, err = r.engine.Drop(r.state, s.ID)
		return err
	})
	if err != nil {
		logger.Log.Errorf("room %s: engine failed to drop %s: %v", r.Code, s.ID, err)
		r.fixTurnLocked(idx)
		r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})
		r.finishLocked("game could not continue")
		return
	}
	r.state = out.State
	r.fixTurnLocked(idx)

	finished := len(r.players) < r.opts.MinPlayers || r.isTerminalLocked()
	if !finished {
		r.reconcileLocked()
	}
	r.broadcastLocked(&network.Envelope{
		Type:     network.MsgTypeStateDelta,
		PlayerID: s.ID,
		Payload:  out.Delta,
		Room:     r.viewLocked(),
	})
	if finished {
		r.finishLocked(fmt.Sprintf("%d players left", len(r.players)))
	}
}

// fixTurnLocked keeps the turn on the same player after the player at
// removed left. If the current player left, the turn passes to the next.
func (r *Room) fixTurnLocked(removed int) {
	if removed < r.turn {
		r.turn--
	}
	if r.turn >= len(r.players) {
		r.turn = 0
	}
}

// Start locks the turn order and begins the game. Only the host may start,
// and only with a valid number of players.
func (r *Room) Start(s *session.Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkMemberLocked(s); err != nil {
		return err
	}
	if !s.IsHost() {
		return ErrNotHost
	}
	if status := r.machine.Current(); status != state.Waiting {
		return fmt.Errorf("%w: room is %s", ErrInvalidState, status)
	}
	if n := len(r.players); n < r.opts.MinPlayers || n > r.opts.MaxPlayers {
		return fmt.Errorf("%w: need %d to %d players, have %d", ErrNotEnoughPlayers, r.opts.MinPlayers, r.opts.MaxPlayers, n)
	}
	if r.opts.RequireReady {
		for _, p := range r.players {
			if !p.IsHost() && !p.IsReady() {
				return fmt.Errorf("%w: %s", ErrPlayersNotReady, p.Name)
			}
		}
	}

	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	var initial json.RawMessage
	err := r.guard("setup", func() (err error) {
		initial, err = r.engine.Setup(ids)
		return err
	})
	if err != nil {
		logger.Log.Errorf("room %s: engine setup failed: %v", r.Code, err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := r.machine.ChangeState(state.InProgress); err != nil {
		return err
	}

	r.state = initial
	r.turn = 0
	r.actions = 0
	r.stopIdleLocked()
	r.recordLocked(models.EventGameStarted, s.ID, "")
	r.reconcileLocked()
	r.broadcastLocked(r.snapshotLocked())
	return nil
}

// Reset sends a started game back to Waiting. It is only allowed before
// any action was accepted.
func (r *Room) Reset(s *session.Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkMemberLocked(s); err != nil {
		return err
	}
	if !s.IsHost() {
		return ErrNotHost
	}
	if err := r.machine.ChangeState(state.Waiting); err != nil {
		return err
	}

	r.state = nil
	r.turn = 0
	for _, p := range r.players {
		p.SetReady(false)
	}
	r.recordLocked(models.EventGameReset, s.ID, "")
	r.armIdleLocked()
	r.broadcastLocked(r.snapshotLocked())
	return nil
}

// Act applies one player action. Errors are meant for the acting player
// only; nothing is broadcast and no sequence number is used when Act fails.
func (r *Room) Act(s *session.Session, payload json.RawMessage) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkMemberLocked(s); err != nil {
		return err
	}
	switch status := r.machine.Current(); status {
	case state.InProgress:
	case state.Paused:
		return ErrGamePaused
	default:
		return fmt.Errorf("%w: room is %s", ErrInvalidState, status)
	}
	if r.players[r.turn] != s {
		return ErrNotYourTurn
	}

	var out engine.Outcome
	err := r.guard("apply", func() (err error) {
		out, err = r.engine.Apply(r.state, s.ID, payload)
		return err
	})
	if err != nil {
		if errors.Is(err, engine.ErrIllegalAction) {
			return err
		}
		logger.Log.Errorf("room %s: engine failed on action from %s: %v", r.Code, s.ID, err)
		if errors.Is(err, ErrInternal) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	r.state = out.State
	r.actions++
	if out.EndTurn {
		r.turn = (r.turn + 1) % len(r.players)
	}

	terminal := r.isTerminalLocked()
	if !terminal {
		r.reconcileLocked()
	}
	r.broadcastLocked(&network.Envelope{
		Type:     network.MsgTypeStateDelta,
		PlayerID: s.ID,
		Payload:  out.Delta,
		Room:     r.viewLocked(),
	})
	if terminal {
		r.finishLocked("")
	}
	return nil
}

// Resync sends s the full current state and sequence number.
func (r *Room) Resync(s *session.Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkMemberLocked(s); err != nil {
		return err
	}
	r.sendLocked(s, r.snapshotLocked())
	return nil
}

// Chat relays a chat line to the room. Chat works in every room status.
func (r *Room) Chat(s *session.Session, text string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkMemberLocked(s); err != nil {
		return err
	}
	text, err := r.chat.Allow(s.ID, text)
	if err != nil {
		return err
	}
	r.broadcastLocked(&network.Envelope{Type: network.MsgTypeChat, PlayerID: s.ID, Name: s.Name, Text: text})
	r.rememberChatLocked(s, text)
	r.armIdleLocked()
	return nil
}

// rememberChatLocked appends the line just broadcast to the history,
// dropping the oldest lines beyond the configured size.
func (r *Room) rememberChatLocked(s *session.Session, text string) {
	if r.opts.ChatHistorySize <= 0 {
		return
	}
	r.history = append(r.history, network.ChatLine{
		Seq:      r.seq,
		PlayerID: s.ID,
		Name:     s.Name,
		Text:     text,
		SentAt:   time.Now(),
	})
	if extra := len(r.history) - r.opts.ChatHistorySize; extra > 0 {
		r.history = slices.Delete(r.history, 0, extra)
	}
}

func (r *Room) SetReady(s *session.Session, ready bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkMemberLocked(s); err != nil {
		return err
	}
	if status := r.machine.Current(); status != state.Waiting {
		return fmt.Errorf("%w: room is %s", ErrInvalidState, status)
	}
	s.SetReady(ready)
	r.broadcastLocked(&network.Envelope{Type: network.MsgTypePresence, PlayerID: s.ID, Room: r.viewLocked()})
	r.armIdleLocked()
	return nil
}

// Close shuts the room down. Connected players receive detail as a
// RoomNotFound error when it is not empty.
func (r *Room) Close(detail string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closeLocked(detail)
}

func (r *Room) closeLocked(detail string) {
	if r.closed {
		return
	}
	r.closed = true
	r.stopIdleLocked()
	for _, s := range r.players {
		if detail != "" {
			r.sendLocked(s, network.NewError(network.KindRoomNotFound, detail))
		}
		s.Remove()
	}
	r.recordLocked(models.EventRoomClosed, "", detail)
	r.players = nil
	logger.Log.Infof("room %s: closed", r.Code)
	if r.onClose != nil {
		r.onClose(r)
	}
}

func (r *Room) finishLocked(reason string) {
	if err := r.machine.ChangeState(state.Finished); err != nil {
		logger.Log.Warnf("room %s: cannot finish: %v", r.Code, err)
		return
	}
	r.recordLocked(models.EventGameFinished, "", reason)
	r.broadcastLocked(&network.Envelope{
		Type:  network.MsgTypeGameOver,
		Text:  reason,
		State: r.state,
		Room:  r.viewLocked(),
	})
	if r.connectedLocked() == 0 {
		r.closeLocked("")
	}
}

// reconcileLocked pauses or resumes a running game according to who is
// connected and the pause policy.
func (r *Room) reconcileLocked() {
	switch r.machine.Current() {
	case state.InProgress:
		if r.shouldPauseLocked() {
			if err := r.machine.ChangeState(state.Paused); err == nil {
				r.recordLocked(models.EventGamePaused, r.players[r.turn].ID, "")
			}
		}
	case state.Paused:
		if !r.shouldPauseLocked() {
			if err := r.machine.ChangeState(state.InProgress); err == nil {
				r.recordLocked(models.EventGameResumed, r.players[r.turn].ID, "")
			}
		}
	}
}

func (r *Room) shouldPauseLocked() bool {
	if len(r.players) == 0 {
		return false
	}
	if r.opts.PausePolicy == config.PauseOnAny {
		return r.connectedLocked() < len(r.players)
	}
	return !r.players[r.turn].IsConnected()
}

func (r *Room) isTerminalLocked() bool {
	terminal := false
	err := r.guard("is_terminal", func() error {
		terminal = r.engine.IsTerminal(r.state)
		return nil
	})
	return err == nil && terminal
}

// guard runs one engine call and turns a panic into ErrInternal.
func (r *Room) guard(op string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("room %s: engine panic in %s: %v\n%s", r.Code, op, p, debug.Stack())
			err = fmt.Errorf("%w: engine panic", ErrInternal)
		}
	}()
	return fn()
}

func (r *Room) checkMemberLocked(s *session.Session) error {
	if r.closed {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, r.Code)
	}
	if s == nil || !slices.Contains(r.players, s) {
		return ErrNotInRoom
	}
	return nil
}

func (r *Room) connectedLocked() int {
	n := 0
	for _, s := range r.players {
		if s.IsConnected() {
			n++
		}
	}
	return n
}

// broadcastLocked stamps env with the next sequence number and queues it for
// every connected member.
func (r *Room) broadcastLocked(env *network.Envelope) {
	r.seq++
	env.Seq = r.seq
	env.Code = r.Code
	r.broadcaster.Broadcast(r.players, env)
}

// sendLocked replies to one session with the current sequence number.
func (r *Room) sendLocked(s *session.Session, env *network.Envelope) {
	env.Seq = r.seq
	env.Code = r.Code
	if err := r.broadcaster.SendTo(s, env); err != nil {
		logger.Log.Debugf("room %s: send %s to %s failed: %v", r.Code, env.Type, s.ID, err)
	}
}

func (r *Room) welcomeLocked(s *session.Session) {
	r.sendLocked(s, &network.Envelope{
		Type:     network.MsgTypeRoomJoined,
		PlayerID: s.ID,
		Name:     s.Name,
		Token:    s.Token,
	})
	r.sendLocked(s, r.snapshotLocked())
	if len(r.history) > 0 {
		r.sendLocked(s, &network.Envelope{
			Type:    network.MsgTypeChatHistory,
			History: slices.Clone(r.history),
		})
	}
}

func (r *Room) snapshotLocked() *network.Envelope {
	return &network.Envelope{
		Type:  network.MsgTypeStateSnapshot,
		State: r.state,
		Room:  r.viewLocked(),
	}
}

func (r *Room) viewLocked() *network.RoomView {
	status := r.machine.Current()
	view := &network.RoomView{
		Code:    r.Code,
		Name:    r.Name,
		Status:  status.String(),
		Players: make([]network.PlayerView, 0, len(r.players)),
	}
	if (status == state.InProgress || status == state.Paused) && len(r.players) > 0 {
		view.Turn = r.players[r.turn].ID
	}
	for _, s := range r.players {
		view.Players = append(view.Players, s.View())
	}
	return view
}

func (r *Room) recordLocked(kind models.EventKind, playerID, detail string) {
	event := models.RoomEvent{
		Code:       r.Code,
		Kind:       kind,
		PlayerID:   playerID,
		Status:     r.machine.Current().String(),
		Seq:        r.seq,
		Players:    len(r.players),
		Detail:     detail,
		OccurredAt: time.Now(),
	}
	if err := r.recorder.Record(context.Background(), event); err != nil {
		logger.Log.Warnf("room %s: record %s failed: %v", r.Code, kind, err)
	}
}

func (r *Room) armIdleLocked() {
	if r.closed || r.opts.IdleTimeout <= 0 || r.machine.Current() != state.Waiting {
		return
	}
	r.stopIdleLocked()
	r.idleGen++
	gen := r.idleGen
	r.cancelIdle = r.scheduler.AfterFunc(r.opts.IdleTimeout, func() {
		r.expireIdle(gen)
	})
}

func (r *Room) stopIdleLocked() {
	if r.cancelIdle != nil {
		r.cancelIdle()
		r.cancelIdle = nil
	}
	r.idleGen++
}

func (r *Room) expireIdle(gen uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || gen != r.idleGen || r.machine.Current() != state.Waiting {
		return
	}
	logger.Log.Infof("room %s: idle for %s, closing", r.Code, r.opts.IdleTimeout)
	r.closeLocked("room closed after being idle")
}

// Status returns the current room status.
func (r *Room) Status() state.Status {
	return r.machine.Current()
}

// Seq returns the sequence number of the last broadcast.
func (r *Room) Seq() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.seq
}

// Members returns the sessions in turn order.
func (r *Room) Members() []*session.Session {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return slices.Clone(r.players)
}

func (r *Room) View() network.RoomView {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return *r.viewLocked()
}

// Snapshot returns the full-state message for the current state.
func (r *Room) Snapshot() *network.Envelope {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	env := r.snapshotLocked()
	env.Seq = r.seq
	env.Code = r.Code
	return env
}

func (r *Room) Summary() models.RoomSummary {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	summary := models.RoomSummary{
		Code:       r.Code,
		Name:       r.Name,
		Status:     r.machine.Current().String(),
		Players:    len(r.players),
		Connected:  r.connectedLocked(),
		MaxPlayers: r.opts.MaxPlayers,
		Seq:        r.seq,
		CreatedAt:  r.CreatedAt,
	}
	for _, s := range r.players {
		if s.IsHost() {
			summary.Host = s.Name
		}
	}
	return summary
}

func (r *Room) Closed() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.closed
}
