package net

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Peer is one websocket client subscribed to a document.
type Peer struct {
	Conn *websocket.Conn
	Doc  string
}

// PeerManager is used by the document service to track every live
// websocket subscription.
type PeerManager struct {
	peers map[*Peer]struct{}
	mu    sync.RWMutex
}

func NewPeerManager() *PeerManager {
	return &PeerManager{
		peers: make(map[*Peer]struct{}),
	}
}

// Add registers peer and returns the function that removes it.
func (pm *PeerManager) Add(peer *Peer) (remove func()) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peers[peer] = struct{}{}
	return func() {
		pm.mu.Lock()
		defer pm.mu.Unlock()
		delete(pm.peers, peer)
	}
}

// Count returns the number of peers on doc, or on every document when
// doc is empty.
func (pm *PeerManager) Count(doc string) int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if doc == "" {
		return len(pm.peers)
	}
	n := 0
	for p := range pm.peers {
		if p.Doc == doc {
			n++
		}
	}
	return n
}

// CloseAll disconnects every peer; their handlers then remove them.
func (pm *PeerManager) CloseAll() {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	for p := range pm.peers {
		p.Conn.Close()
	}
}
