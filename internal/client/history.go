package client

import (
	"errors"
	"strings"

	"github.com/rewrz/word-soul/internal/model"
)

var (
	// ErrEntryNotFound means no entry carries the requested server index.
	ErrEntryNotFound = errors.New("history entry not found")

	// ErrNotEditable means the addressed entry is not narrator prose.
	ErrNotEditable = errors.New("only narrator entries can be edited")

	// ErrEditDiverged means a local edit was kept but the server sync
	// failed, so the local copy no longer matches the authoritative one.
	ErrEditDiverged = errors.New("edit applied locally but not synced")
)

// Sync states of a history entry relative to the server's copy.
type SyncState int

const (
	// SyncConfirmed matches the server's authoritative record.
	SyncConfirmed SyncState = iota
	// SyncPending is an edit applied locally with the server call still
	// outstanding.
	SyncPending
	// SyncDiverged is a local-only edit whose server sync failed. It
	// stands until the next full reload replaces it.
	SyncDiverged
)

// LocalIndex marks entries that exist only on this client: system
// messages, placeholders, and optimistic entries awaiting confirmation.
const LocalIndex = -1

// Entry is one line of the displayed narrative log. ServerIndex is the
// entry's position in the server's newest-first recent history, or
// LocalIndex for client-only entries.
type Entry struct {
	ID          int
	Role        string
	Content     string
	ServerIndex int
	Sync        SyncState
}

// History is the index-addressed narrative log, kept in chronological
// (oldest-first) display order. It is not safe for concurrent use; the
// turn engine mutates it from a single goroutine.
type History struct {
	entries []Entry
	nextID  int
}

func NewHistory() *History {
	return &History{}
}

// Load replaces the log with the server's recent history. The server
// sends newest-first; display order is chronological, so the slice is
// reversed while each entry keeps its original server index for edit
// addressing.
func (h *History) Load(serverHistory []model.HistoryEntry) {
	h.entries = h.entries[:0]
	for i := len(serverHistory) - 1; i >= 0; i-- {
		h.entries = append(h.entries, Entry{
			ID:          h.allocID(),
			Role:        serverHistory[i].Role,
			Content:     serverHistory[i].Content,
			ServerIndex: i,
		})
	}
}

// Entries returns a snapshot of the log in display order
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len reports the number of entries, local ones included
func (h *History) Len() int {
	return len(h.entries)
}

// Get returns the entry at server index
func (h *History) Get(serverIndex int) (Entry, bool) {
	for _, e := range h.entries {
		if e.ServerIndex == serverIndex && serverIndex != LocalIndex {
			return e, true
		}
	}
	return Entry{}, false
}

// AppendLocal adds a client-only entry (system message, optimistic player
// action, composing placeholder) at the display tail and returns its id.
func (h *History) AppendLocal(role, content string) int {
	id := h.allocID()
	h.entries = append(h.entries, Entry{
		ID:          id,
		Role:        role,
		Content:     content,
		ServerIndex: LocalIndex,
	})
	return id
}

// RemoveLocal deletes a client-only entry by id. Entries the server knows
// about are never removed this way.
func (h *History) RemoveLocal(id int) {
	for i, e := range h.entries {
		if e.ID == id && e.ServerIndex == LocalIndex {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// CommitTurn records a confirmed turn: the server inserted the player
// action at index 1 and the narrator's prose at index 0, so every older
// server index shifts by two. The optimistic player entry identified by
// playerEntryID is promoted instead of re-appended.
func (h *History) CommitTurn(playerEntryID int, narration string) {
	for i := range h.entries {
		if h.entries[i].ServerIndex != LocalIndex {
			h.entries[i].ServerIndex += 2
		}
	}

	for i := range h.entries {
		if h.entries[i].ID == playerEntryID {
			h.entries[i].ServerIndex = 1
			break
		}
	}

	h.entries = append(h.entries, Entry{
		ID:          h.allocID(),
		Role:        model.RoleAssistant,
		Content:     narration,
		ServerIndex: 0,
	})
}

// EditByIndex rewrites a narrator entry addressed by server index as a
// two-phase commit: the edit is applied locally as pending, then sync is
// attempted. Success confirms the entry; failure keeps the edit but marks
// it diverged and returns ErrEditDiverged wrapping the sync error.
func (h *History) EditByIndex(serverIndex int, newContent string, sync func() error) error {
	pos := -1
	for i, e := range h.entries {
		if e.ServerIndex == serverIndex && serverIndex != LocalIndex {
			pos = i
			break
		}
	}
	if pos < 0 {
		return ErrEntryNotFound
	}
	if h.entries[pos].Role != model.RoleAssistant {
		return ErrNotEditable
	}
	if strings.TrimSpace(newContent) == "" {
		return errors.New("narrative text must not be empty")
	}

	h.entries[pos].Content = newContent
	h.entries[pos].Sync = SyncPending

	if err := sync(); err != nil {
		h.entries[pos].Sync = SyncDiverged
		return errors.Join(ErrEditDiverged, err)
	}

	h.entries[pos].Sync = SyncConfirmed
	return nil
}

func (h *History) allocID() int {
	h.nextID++
	return h.nextID
}
