// Package session acquires and releases vault session tokens. Tokens come
// from three sources in order: an explicit value handed in by the caller,
// the OS keyring cache, and an interactive unlock prompt. Cached or
// explicit tokens are probed before use so a stale token falls through to
// the next source instead of failing the run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"vaultback/internal/logging"
	"vaultback/internal/services"
	"vaultback/internal/services/bitwarden"
)

const (
	keyringService = "vaultback"
	keyringAccount = "session"
)

// VaultClient is the subset of the vault client the manager drives.
type VaultClient interface {
	Status(ctx context.Context) (bitwarden.Status, error)
	Unlock(ctx context.Context, masterPassword string) (string, error)
	CheckUnlocked(ctx context.Context, session string) bool
	Lock(ctx context.Context, session string) error
}

// Keyring abstracts the OS credential store for tests.
type Keyring interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// Options configures token acquisition and release behavior.
type Options struct {
	// CacheSession stores freshly acquired tokens in the OS keyring and
	// reads them back on later runs.
	CacheSession bool
	// KeepSession leaves the vault unlocked and the cache intact when a
	// run ends.
	KeepSession bool
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithKeyring overrides the OS credential store.
func WithKeyring(store Keyring) Option {
	return func(m *Manager) {
		m.keyring = store
	}
}

// WithPasswordPrompt overrides the interactive master password prompt.
func WithPasswordPrompt(prompt func() (string, error)) Option {
	return func(m *Manager) {
		m.prompt = prompt
	}
}

// Manager sources and retires session tokens for one run.
type Manager struct {
	client  VaultClient
	opts    Options
	logger  *slog.Logger
	keyring Keyring
	prompt  func() (string, error)
}

// NewManager builds a manager around the given vault client.
func NewManager(client VaultClient, opts Options, logger *slog.Logger, modifiers ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		client:  client,
		opts:    opts,
		logger:  logger,
		keyring: osKeyring{},
		prompt:  ReadMasterPassword,
	}
	for _, modify := range modifiers {
		modify(m)
	}
	return m
}

// Acquire returns a usable session token. The explicit token, if any,
// wins; otherwise the keyring cache is tried, then an interactive unlock.
// An unconfigured vault account is fatal before any source is consulted.
func (m *Manager) Acquire(ctx context.Context, explicit string) (string, error) {
	status, err := m.client.Status(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "session", "status", "query vault status", err)
	}
	if !status.Configured() {
		return "", services.Wrap(services.ErrNotConfigured, "session", "status", "no account is logged in; run bw login first", nil)
	}

	if token := strings.TrimSpace(explicit); token != "" {
		if m.client.CheckUnlocked(ctx, token) {
			m.logger.Debug("using provided session token")
			return token, nil
		}
		m.logger.Warn("provided session token rejected, falling back to unlock")
	}

	if m.opts.CacheSession {
		if token := m.cachedToken(ctx); token != "" {
			m.logger.Debug("using cached session token")
			return token, nil
		}
	}

	token, err := m.unlock(ctx)
	if err != nil {
		return "", err
	}
	if m.opts.CacheSession {
		if err := m.keyring.Set(keyringService, keyringAccount, token); err != nil {
			m.logger.Warn("failed to cache session token", logging.Error(err))
		}
	}
	return token, nil
}

// Release retires the session at the end of a run. With KeepSession set
// the vault stays unlocked and the cache survives. Failures are logged,
// never returned: a leftover session must not mask the run outcome.
func (m *Manager) Release(ctx context.Context, token string) {
	if m.opts.KeepSession {
		m.logger.Info("leaving vault unlocked")
		return
	}
	if strings.TrimSpace(token) != "" {
		if err := m.client.Lock(ctx, token); err != nil {
			m.logger.Warn("failed to lock vault", logging.Error(err))
		} else {
			m.logger.Info("vault locked")
		}
	}
	if m.opts.CacheSession {
		if err := m.keyring.Delete(keyringService, keyringAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			m.logger.Warn("failed to clear cached session token", logging.Error(err))
		}
	}
}

func (m *Manager) cachedToken(ctx context.Context) string {
	token, err := m.keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			m.logger.Warn("failed to read cached session token", logging.Error(err))
		}
		return ""
	}
	if m.client.CheckUnlocked(ctx, token) {
		return token
	}
	m.logger.Warn("cached session token rejected, discarding")
	if err := m.keyring.Delete(keyringService, keyringAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		m.logger.Warn("failed to clear cached session token", logging.Error(err))
	}
	return ""
}

func (m *Manager) unlock(ctx context.Context) (string, error) {
	password, err := m.prompt()
	if err != nil {
		return "", err
	}
	token, err := m.client.Unlock(ctx, password)
	if err != nil {
		return "", services.Wrap(services.ErrNoSession, "session", "unlock", "vault unlock failed", err)
	}
	return token, nil
}

// ReadMasterPassword reads the master password from the terminal. It is
// the default unlock prompt and exported so callers can wrap it.
func ReadMasterPassword() (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", services.Wrap(services.ErrNoSession, "session", "unlock", "no session token available and stdin is not a terminal", nil)
	}
	fmt.Fprint(os.Stderr, "Master password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read master password: %w", err)
	}
	return string(raw), nil
}

type osKeyring struct{}

func (osKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (osKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (osKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}
