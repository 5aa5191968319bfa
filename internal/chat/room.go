package chat

import "sync"

// Room is a named broadcast group of receivers.
type Room struct {
	name string

	mu      sync.Mutex
	members map[*User]struct{}
}

func NewRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[*User]struct{}),
	}
}

func (r *Room) Name() string { return r.name }

func (r *Room) AddMember(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[u] = struct{}{}
}

// RemoveMember is a no-op when u is not a member.
func (r *Room) RemoveMember(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, u)
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Broadcast queues a delivery of text from sender to every current member
// and returns how many mailboxes accepted it. The lock is held across the
// enqueues so all members see this room's broadcasts in the same order.
func (r *Room) Broadcast(sender, text string) int {
	msg := NewMessage(TagDelivery, DeliveryPayload(r.name, sender, text))

	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for u := range r.members {
		if u.mailbox.Enqueue(msg) {
			delivered++
		}
	}
	return delivered
}

// clear drops every membership; used when the registry shuts down.
func (r *Room) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = make(map[*User]struct{})
}
