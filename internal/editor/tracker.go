// Package editor tracks which editor has focus and which stored connection
// each editor is bound to. The sharing gateway consults it to answer
// "what is the active editor's connection".
package editor

import "sync"

// Tracker is a focus and binding registry. The embedding host calls SetFocus
// and Bind as its UI state changes; it is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	focused  string
	bindings map[string]string // editor URI -> connection (profile) id
}

// NewTracker returns an empty tracker with no focused editor.
func NewTracker() *Tracker {
	return &Tracker{bindings: map[string]string{}}
}

// SetFocus marks editorURI as the focused editor.
func (t *Tracker) SetFocus(editorURI string) {
	t.mu.Lock()
	t.focused = editorURI
	t.mu.Unlock()
}

// ClearFocus marks that no editor has focus.
func (t *Tracker) ClearFocus() {
	t.mu.Lock()
	t.focused = ""
	t.mu.Unlock()
}

// Bind associates editorURI with a stored connection id.
func (t *Tracker) Bind(editorURI, connectionID string) {
	t.mu.Lock()
	t.bindings[editorURI] = connectionID
	t.mu.Unlock()
}

// Unbind removes the association for editorURI.
func (t *Tracker) Unbind(editorURI string) {
	t.mu.Lock()
	delete(t.bindings, editorURI)
	t.mu.Unlock()
}

// ActiveConnectionID returns the connection id bound to the focused editor.
// hasEditor is false when no editor has focus; a focused editor without a
// binding yields ("", true).
func (t *Tracker) ActiveConnectionID() (connectionID string, hasEditor bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.focused == "" {
		return "", false
	}
	return t.bindings[t.focused], true
}
