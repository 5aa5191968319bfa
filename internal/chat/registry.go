package chat

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry owns every Room, keyed by name. Rooms are created on first use
// and are never removed while the registry is open, so a *Room returned by
// FindOrCreate stays valid for the registry's lifetime.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// FindOrCreate returns the unique room called name, creating it if needed.
// The lock covers only the lookup-or-insert.
func (r *Registry) FindOrCreate(name string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[name]; ok {
		return room
	}
	room := NewRoom(name)
	r.rooms[name] = room
	RoomsTotal.Inc()

	r.logger.Info("room created", "room", name)
	return room
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Names lists the registered rooms in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close drops every room and its memberships.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.rooms {
		room.clear()
	}
	RoomsTotal.Sub(float64(len(r.rooms)))
	r.rooms = make(map[string]*Room)
}
