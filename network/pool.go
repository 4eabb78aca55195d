package network

import (
	"context"
	"sync"
)

// Pool tracks every live connection in the process.
type Pool struct {
	conns map[string]Connection
	mutex sync.RWMutex
}

func NewPool() *Pool {
	return &Pool{
		conns: make(map[string]Connection),
	}
}

func (p *Pool) Add(conn Connection) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.conns[conn.ID()] = conn
}

func (p *Pool) Remove(id string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.conns, id)
}

func (p *Pool) Get(id string) (Connection, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	conn, exists := p.conns[id]
	return conn, exists
}

func (p *Pool) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.conns)
}

func (p *Pool) snapshot() []Connection {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	conns := make([]Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	return conns
}

// CloseAll sends notice to every connection and closes it. Connections that
// have not finished flushing when ctx ends are closed forcibly.
func (p *Pool) CloseAll(ctx context.Context, notice []byte) {
	conns := p.snapshot()
	for _, c := range conns {
		c.CloseWithNotice(notice)
	}
	for _, c := range conns {
		select {
		case <-c.Done():
		case <-ctx.Done():
			c.Close()
		}
	}
}
