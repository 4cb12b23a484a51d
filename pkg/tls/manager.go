// Package tls decides how the evaluation server listens: plain HTTP, TLS
// with certificate files or certificates from Let's Encrypt.
package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/antibyte/kscr/pkg/configuration"
	"github.com/antibyte/kscr/pkg/logger"
)

// Mode is the listening mode selected by the configuration.
type Mode int

const (
	ModePlain Mode = iota
	ModeFiles
	ModeACME
)

func (m Mode) String() string {
	switch m {
	case ModeFiles:
		return "tls-files"
	case ModeACME:
		return "tls-acme"
	}
	return "plain"
}

// Config holds the [TLS] settings
type Config struct {
	EnableTLS         bool
	EnableLetsEncrypt bool
	Domain            string
	Email             string
	CertFile          string
	KeyFile           string
	CertCacheDir      string
	ChallengeAddr     string // HTTP-01 challenge listener, ACME only
}

// ConfigFromSettings reads the [TLS] section.
func ConfigFromSettings() Config {
	return Config{
		EnableTLS:         configuration.GetBool("TLS", "enable_tls", false),
		EnableLetsEncrypt: configuration.GetBool("TLS", "enable_letsencrypt", false),
		Domain:            strings.TrimSpace(configuration.GetString("TLS", "domain", "")),
		Email:             strings.TrimSpace(configuration.GetString("TLS", "email", "")),
		CertFile:          configuration.GetString("TLS", "cert_file", ""),
		KeyFile:           configuration.GetString("TLS", "key_file", ""),
		CertCacheDir:      configuration.GetString("TLS", "cert_cache_dir", "certs"),
		ChallengeAddr:     configuration.GetString("TLS", "challenge_addr", ":80"),
	}
}

// Manager builds the listeners for one Config.
type Manager struct {
	config      Config
	mode        Mode
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
}

// NewManager validates cfg and prepares the TLS setup it asks for.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{config: cfg}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("TLS configuration invalid: %w", err)
	}

	switch {
	case !cfg.EnableTLS:
		m.mode = ModePlain
	case cfg.EnableLetsEncrypt:
		if err := m.initACME(); err != nil {
			return nil, err
		}
	default:
		if err := m.initFiles(); err != nil {
			return nil, err
		}
	}
	logger.SecurityInfo("Listening mode: %s", m.mode)
	return m, nil
}

func (m *Manager) validate() error {
	if !m.config.EnableTLS {
		return nil
	}
	if m.config.EnableLetsEncrypt {
		if m.config.Domain == "" {
			return errors.New("domain is required when Let's Encrypt is enabled")
		}
		if m.config.Email == "" {
			return errors.New("email is required when Let's Encrypt is enabled")
		}
		return nil
	}
	if m.config.CertFile == "" || m.config.KeyFile == "" {
		return errors.New("cert_file and key_file are required when TLS is enabled without Let's Encrypt")
	}
	return nil
}

func (m *Manager) initACME() error {
	if err := os.MkdirAll(m.config.CertCacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create certificate cache directory: %w", err)
	}
	m.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(m.config.CertCacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      m.config.Email,
		HostPolicy: autocert.HostWhitelist(m.config.Domain, "www."+m.config.Domain),
	}
	m.tlsConfig = m.autocertMgr.TLSConfig()
	m.tlsConfig.MinVersion = tls.VersionTLS12
	m.mode = ModeACME
	logger.SecurityInfo("Let's Encrypt enabled for %s", m.config.Domain)
	return nil
}

func (m *Manager) initFiles() error {
	cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate %s: %w", m.config.CertFile, err)
	}
	m.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS12,
	}
	m.mode = ModeFiles
	return nil
}

// Mode returns the selected listening mode
func (m *Manager) Mode() Mode {
	return m.mode
}

// TLSConfig returns nil in plain mode.
func (m *Manager) TLSConfig() *tls.Config {
	return m.tlsConfig
}

// ChallengeHandler answers ACME HTTP-01 challenges and redirects everything
// else to HTTPS. It is nil unless Let's Encrypt is used.
func (m *Manager) ChallengeHandler() http.Handler {
	if m.autocertMgr == nil {
		return nil
	}
	return m.autocertMgr.HTTPHandler(nil)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (m *Manager) Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		TLSConfig:         m.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var challenge *http.Server
	if h := m.ChallengeHandler(); h != nil {
		challenge = &http.Server{Addr: m.config.ChallengeAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(logger.AreaSecurity, "ACME challenge listener failed: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.ServerInfo("Serving on %s (%s)", addr, m.mode)
		if m.tlsConfig != nil {
			// certificates come from TLSConfig
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if challenge != nil {
			challenge.Close()
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if challenge != nil {
		challenge.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.ServerInfo("Server on %s stopped", addr)
	return nil
}
