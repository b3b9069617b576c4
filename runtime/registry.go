package runtime

import (
	"sort"
	"sync"

	"keychat/contract"
	"keychat/domain"

	"github.com/samber/lo"
)

type Set map[string]struct{}

// Registry maps rooms to their joined members.
// Join, Leave and Broadcast share one mutex: two broadcasts in the same room never
// interleave their deliveries, so every member observes them in call order.
type Registry struct {
	mu          sync.Mutex
	members     map[string]contract.Member // member ID -> member
	memberRoom  map[string]domain.RoomID   // member ID -> its only room
	roomMembers map[domain.RoomID]Set      // room -> member IDs
}

func NewRegistry() *Registry {
	return &Registry{
		members:     make(map[string]contract.Member),
		memberRoom:  make(map[string]domain.RoomID),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Join adds member to roomID, creating the room on the fly.
// Joining twice is a no-op; joining another room moves the member.
func (r *Registry) Join(roomID domain.RoomID, member contract.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := member.ID()
	if current, ok := r.memberRoom[id]; ok {
		if current == roomID {
			return
		}
		r.remove(id, current)
	}

	r.members[id] = member
	r.memberRoom[id] = roomID
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][id] = struct{}{}
}

// Leave removes member from its room. Unknown members are ignored.
func (r *Registry) Leave(member contract.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := member.ID()
	if roomID, ok := r.memberRoom[id]; ok {
		r.remove(id, roomID)
	}
}

func (r *Registry) remove(id string, roomID domain.RoomID) {
	delete(r.members, id)
	delete(r.memberRoom, id)

	if set, ok := r.roomMembers[roomID]; ok {
		delete(set, id)

		// If no one is left in the room, remove the room entry entirely
		if len(set) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}

// Broadcast hands the message to every member of the room, sender included.
// Deliveries never block; a member with a full outbox just misses this one.
// It returns how many members accepted the delivery.
func (r *Registry) Broadcast(roomID domain.RoomID, sender domain.Identity, text string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	broadcast := domain.Broadcast{Message: text, Holder: sender}
	delivered := 0
	for id := range r.roomMembers[roomID] {
		if r.members[id].Deliver(broadcast) {
			delivered++
		}
	}
	return delivered
}

// Members returns the sorted member IDs of a room.
// Only tests read it; stats need counts, see Rooms.
func (r *Registry) Members(roomID domain.RoomID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := lo.Keys(r.roomMembers[roomID])
	sort.Strings(ids)
	return ids
}

// Rooms returns a snapshot of every live room with its member count.
func (r *Registry) Rooms() map[domain.RoomID]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.MapValues(r.roomMembers, func(set Set, _ domain.RoomID) int {
		return len(set)
	})
}
