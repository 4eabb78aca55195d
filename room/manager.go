// room/manager.go
package room

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
	"github.com/wfunc/roomsync/state"
	"github.com/wfunc/roomsync/timer"
)

// CodeAlphabet leaves out characters that are easy to misread.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 32

// MaxRoomNameLength bounds a room's display name, in characters.
const MaxRoomNameLength = 32

// Manager is the process-wide directory of live rooms. Its lock only guards
// the code to room map; everything inside a room is serialized by the room.
type Manager struct {
	opts        Options
	engine      Engine
	broadcaster Broadcaster
	scheduler   timer.Scheduler
	recorder    Recorder
	newCode     func(length int) string

	rooms map[string]*Room
	mutex sync.RWMutex
}

type ManagerOption func(*Manager)

func WithRecorder(recorder Recorder) ManagerOption {
	return func(m *Manager) {
		if recorder != nil {
			m.recorder = recorder
		}
	}
}

// WithCodeGenerator replaces the random room code generator.
func WithCodeGenerator(gen func(length int) string) ManagerOption {
	return func(m *Manager) {
		m.newCode = gen
	}
}

func NewRoomManager(opts Options, engine Engine, broadcaster Broadcaster, scheduler timer.Scheduler, options ...ManagerOption) *Manager {
	m := &Manager{
		opts:        opts,
		engine:      engine,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		recorder:    nopRecorder{},
		newCode:     RandomCode,
		rooms:       make(map[string]*Room),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// RandomCode returns a code of the given length drawn from CodeAlphabet.
func RandomCode(length int) string {
	var b strings.Builder
	b.Grow(length)
	for range length {
		b.WriteByte(CodeAlphabet[rand.IntN(len(CodeAlphabet))])
	}
	return b.String()
}

// CreateRoom creates an empty room in Waiting under a code that no live
// room uses. An empty name is replaced by one derived from the code.
func (m *Manager) CreateRoom(name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return nil, fmt.Errorf("%w: room name longer than %d characters", ErrBadRequest, MaxRoomNameLength)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for range maxCodeAttempts {
		code := m.newCode(m.opts.CodeLength)
		if _, taken := m.rooms[code]; taken {
			continue
		}
		if name == "" {
			name = "Room " + code
		}
		r := newRoom(code, name, m)
		m.rooms[code] = r
		logger.Log.Infof("room %s: created, %d rooms live", code, len(m.rooms))
		return r, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// JoinRoom resolves code and joins the room as name. A token or name that
// matches an existing member reattaches that member instead.
func (m *Manager) JoinRoom(code, name, token string, conn network.Connection) (*session.Session, *Room, error) {
	r, ok := m.GetRoom(code)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	s, err := r.Join(name, token, conn)
	if err != nil {
		return nil, nil, err
	}
	return s, r, nil
}

// RemoveRoom drops the room from the registry and closes it. Unknown codes
// are ignored.
func (m *Manager) RemoveRoom(code string) {
	code = NormalizeCode(code)

	m.mutex.Lock()
	r, ok := m.rooms[code]
	delete(m.rooms, code)
	m.mutex.Unlock()

	if ok {
		r.Close("room removed")
	}
}

// forget is called by a room, under its own lock, once it has closed.
func (m *Manager) forget(r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.rooms[r.Code] == r {
		delete(m.rooms, r.Code)
		logger.Log.Infof("room %s: removed, %d rooms live", r.Code, len(m.rooms))
	}
}

func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[NormalizeCode(code)]
	return r, ok
}

// List returns the rooms that have not finished, oldest first.
func (m *Manager) List() []*Room {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	rooms = slices.DeleteFunc(rooms, func(r *Room) bool {
		return r.Status() == state.Finished
	})
	slices.SortFunc(rooms, func(a, b *Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return rooms
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll closes every room, telling connected players why.
func (m *Manager) CloseAll(detail string) {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	for _, r := range rooms {
		r.Close(detail)
	}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
