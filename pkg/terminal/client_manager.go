package terminal

import (
	"sync"

	"github.com/antibyte/kscr/pkg/logger"
)

// MaxClientsDefault is the connection limit when none is configured
const MaxClientsDefault = 100

// ClientManager verwaltet Client-Verbindungen mit Session-IDs
type ClientManager struct {
	clients    map[string]*Client // sessionID -> Client
	maxClients int
	mu         sync.RWMutex
}

// NewClientManager erstellt einen neuen ClientManager
func NewClientManager(maxClients int) *ClientManager {
	if maxClients <= 0 {
		maxClients = MaxClientsDefault
	}
	return &ClientManager{
		clients:    make(map[string]*Client),
		maxClients: maxClients,
	}
}

// AddClient registers client. It fails when the limit is reached or the
// session already has a connection.
func (cm *ClientManager) AddClient(sessionID string, client *Client) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if len(cm.clients) >= cm.maxClients {
		logger.SecurityWarn("Client limit %d reached, rejecting session %s", cm.maxClients, sessionID)
		return false
	}
	if _, exists := cm.clients[sessionID]; exists {
		logger.SecurityWarn("Session %s already connected", sessionID)
		return false
	}
	cm.clients[sessionID] = client
	logger.ServerDebug("Client added for session %s", sessionID)
	return true
}

// RemoveClient entfernt einen Client
func (cm *ClientManager) RemoveClient(sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, exists := cm.clients[sessionID]; exists {
		delete(cm.clients, sessionID)
		logger.ServerDebug("Client removed for session %s", sessionID)
	}
}

// GetClient gibt den Client einer Session zurück
func (cm *ClientManager) GetClient(sessionID string) (*Client, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	client, ok := cm.clients[sessionID]
	return client, ok
}

// Count gibt die Anzahl der verbundenen Clients zurück
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// CloseAll schließt alle Verbindungen
func (cm *ClientManager) CloseAll() {
	cm.mu.Lock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		clients = append(clients, c)
	}
	cm.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
