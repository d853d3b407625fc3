package dataservice

import "sync"

// TokenSource hands out the bearer token for data service calls.
type TokenSource interface {
	// Token returns the current token, or "" when signed out.
	Token() string
	// Invalidate is called after the service answered 401.
	Invalidate()
}

// TokenHolder is an in-memory TokenSource.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

func (h *TokenHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *TokenHolder) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *TokenHolder) Invalidate() {
	h.SetToken("")
}

// SignedIn reports whether a token is held.
func (h *TokenHolder) SignedIn() bool {
	return h.Token() != ""
}
