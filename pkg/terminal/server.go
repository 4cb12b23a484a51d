// Package terminal serves script evaluation over WebSocket.
package terminal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/antibyte/kscr/pkg/auth"
	"github.com/antibyte/kscr/pkg/configuration"
	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/script"
	"github.com/antibyte/kscr/pkg/shared"
	"github.com/antibyte/kscr/pkg/store"
)

// Options configure a Server. See OptionsFromConfig for the defaults.
type Options struct {
	MaxConcurrentRuns int
	AllowedOrigins    []string // host names, compared without port
	ReadBufferSize    int
	WriteBufferSize   int
	RequireAuth       bool
	RunTimeout        time.Duration // longest wait for an execution slot
	MaxClients        int
	Journal           bool
	MaxSourceBytes    int
}

// OptionsFromConfig reads the [Server] section.
func OptionsFromConfig() Options {
	return Options{
		MaxConcurrentRuns: configuration.GetInt("Server", "max_concurrent_runs", 8),
		AllowedOrigins:    configuration.GetStringList("Server", "allowed_origins", []string{"localhost", "127.0.0.1"}),
		ReadBufferSize:    configuration.GetInt("Server", "read_buffer_size", 4096),
		WriteBufferSize:   configuration.GetInt("Server", "write_buffer_size", 4096),
		RequireAuth:       configuration.GetBool("Server", "require_auth", true),
		RunTimeout:        configuration.GetDuration("Server", "run_timeout", 10*time.Second),
		MaxClients:        configuration.GetInt("Server", "max_clients", MaxClientsDefault),
		Journal:           configuration.GetBool("Store", "enable_journal", true),
		MaxSourceBytes:    configuration.GetInt("Runtime", "max_source_kb", 256) * 1024,
	}
}

// Server dispatches client messages to a script runner.
type Server struct {
	opts      Options
	runner    *script.Runner
	store     *store.Store // nil disables save, list and the journal
	upgrader  websocket.Upgrader
	runSlots  chan struct{}
	clients   *ClientManager
	validator *MessageValidator
}

// NewServer creates a server. st may be nil.
func NewServer(runner *script.Runner, st *store.Store, opts Options) *Server {
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 1
	}
	s := &Server{
		opts:      opts,
		runner:    runner,
		store:     st,
		runSlots:  make(chan struct{}, opts.MaxConcurrentRuns),
		clients:   NewClientManager(opts.MaxClients),
		validator: NewMessageValidator(opts.MaxSourceBytes),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", auth.HandleCreateSession)
	mux.HandleFunc("/api/validate", auth.HandleTokenValidation)
	if s.opts.RequireAuth {
		mux.HandleFunc("/ws", auth.RequireSession(s.HandleWebSocket))
	} else {
		mux.HandleFunc("/ws", s.HandleWebSocket)
	}
	return mux
}

// Shutdown closes all client connections.
func (s *Server) Shutdown() {
	s.clients.CloseAll()
}

// checkOrigin rejects requests without Origin header and origins whose host
// is not listed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logger.SecurityWarn("WebSocket request without Origin header rejected")
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		logger.SecurityWarn("WebSocket request with malformed origin rejected: %s", origin)
		return false
	}
	host := u.Hostname()
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	logger.SecurityWarn("WebSocket request from disallowed origin rejected: %s", origin)
	return false
}

// HandleWebSocket upgrades the connection and serves it until the client
// disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		sessionID = uuid.New().String()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ServerWarn("WebSocket upgrade failed for session %s: %v", sessionID, err)
		return
	}

	client := newClient(s, conn, sessionID)
	if !s.clients.AddClient(sessionID, client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session rejected"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	logger.ServerInfo("Client connected: session %s from %s", sessionID, conn.RemoteAddr())

	go client.writePump()
	client.writeMessage(shared.Message{Type: shared.MessageTypeSession, SessionID: sessionID})
	client.readPump()
}

// handleMessage processes one validated message and returns the reply.
func (s *Server) handleMessage(ctx context.Context, msg shared.Message) shared.Message {
	switch msg.Type {
	case shared.MessageTypeRun:
		return s.handleRun(ctx, msg)
	case shared.MessageTypeSave:
		return s.handleSave(msg)
	case shared.MessageTypeList:
		return s.handleList()
	}
	return errorReply(ErrUnknownType)
}

func (s *Server) handleRun(ctx context.Context, msg shared.Message) shared.Message {
	src := []byte(msg.Source)
	if msg.Name != "" {
		if s.store == nil {
			return errorReply(errNoStore)
		}
		sc, err := s.store.LoadScript(msg.Name)
		if err != nil {
			return errorReply(err)
		}
		src = sc.Source
	}

	if err := s.acquire(ctx); err != nil {
		return errorReply(err)
	}
	start := time.Now()
	res, err := s.runner.Run(src)
	s.release()

	reply := shared.Message{Type: shared.MessageTypeResult}
	if err != nil {
		reply = errorReply(err)
	} else {
		reply.ExitCode = res.ExitCode
		reply.Diagnostic = res.Diagnostic
		reply.Steps = res.Steps
		if res.Value != nil {
			reply.Value = res.Value.String()
		}
	}

	if s.store != nil && s.opts.Journal {
		rec := store.RunRecord{
			ScriptName: msg.Name,
			SourceHash: store.HashSource(src),
			ExitCode:   script.ExitCode(res, err),
			Duration:   time.Since(start),
			StartedAt:  start,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if id, jerr := s.store.RecordRun(rec); jerr == nil {
			reply.RunID = id
		}
	}
	return reply
}

func (s *Server) handleSave(msg shared.Message) shared.Message {
	if s.store == nil {
		return errorReply(errNoStore)
	}
	hash, err := s.store.SaveScript(msg.Name, []byte(msg.Source))
	if err != nil {
		return errorReply(err)
	}
	return shared.Message{Type: shared.MessageTypeSaved, Name: msg.Name, Content: hash}
}

func (s *Server) handleList() shared.Message {
	if s.store == nil {
		return errorReply(errNoStore)
	}
	names, err := s.store.ListScripts()
	if err != nil {
		return errorReply(err)
	}
	return shared.Message{Type: shared.MessageTypeScripts, Names: names}
}

// acquire waits for an execution slot for at most RunTimeout.
func (s *Server) acquire(ctx context.Context) error {
	select {
	case s.runSlots <- struct{}{}:
		return nil
	default:
	}
	if s.opts.RunTimeout <= 0 {
		return shared.NewScriptError(shared.ErrBusy, "server busy")
	}
	timer := time.NewTimer(s.opts.RunTimeout)
	defer timer.Stop()
	select {
	case s.runSlots <- struct{}{}:
		return nil
	case <-timer.C:
		logger.ServerWarn("No execution slot after %v", s.opts.RunTimeout)
		return shared.NewScriptError(shared.ErrBusy, "server busy")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) release() {
	<-s.runSlots
}

var errNoStore = errors.New("no script store attached")

// errorReply renders err as an error message. Errors without category are
// reported as plain errors.
func errorReply(err error) shared.Message {
	category := shared.CategoryOf(err)
	if category == "" {
		category = "ERROR"
	}
	return shared.Message{
		Type:     shared.MessageTypeError,
		Category: category,
		Content:  err.Error(),
	}
}
