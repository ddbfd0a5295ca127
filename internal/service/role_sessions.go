package service

import "sync"

// RoleSessions keeps one live RoleSession per signed-in principal so
// concurrent requests share the same switch guard.
type RoleSessions struct {
	mu       sync.Mutex
	sessions map[string]*RoleSession
}

// NewRoleSessions constructs an empty registry.
func NewRoleSessions() *RoleSessions {
	return &RoleSessions{sessions: make(map[string]*RoleSession)}
}

// Acquire returns the session for the principal, creating it on first use.
func (r *RoleSessions) Acquire(principalID, email string) *RoleSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[principalID]; ok {
		return session
	}
	session := NewRoleSession(principalID, email)
	r.sessions[principalID] = session
	return session
}

// Drop removes a principal's session, typically on logout.
func (r *RoleSessions) Drop(principalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, principalID)
}
