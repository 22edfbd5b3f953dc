package client

import (
	"sync"

	"github.com/pkg/errors"
)

// Session holds the current credentials and writes every change through to
// its store.
type Session struct {
	store CredentialStore

	mu    sync.RWMutex
	creds *Credentials
}

// NewSession restores whatever the store has saved.
func NewSession(store CredentialStore) (*Session, error) {
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{store: store, creds: creds}, nil
}

func (s *Session) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds != nil && s.creds.Token != ""
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.Token
}

// Credentials returns a copy of the current credentials, or nil.
func (s *Session) Credentials() *Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil
	}
	c := *s.creds
	return &c
}

func (s *Session) Start(creds *Credentials) error {
	if creds == nil || creds.Token == "" {
		return errors.New("credentials without a token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(creds); err != nil {
		return err
	}
	c := *creds
	s.creds = &c
	return nil
}

func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return s.store.Clear()
}
