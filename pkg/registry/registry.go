// Package registry tracks the users currently connected to the server and
// the pending file offers queued for each of them.
//
// The registry is the single shared structure between sessions. All access
// goes through one mutex; no method performs I/O or blocks while holding it,
// so contention stays bounded by map and slice operations.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry errors returned by registration and offer operations.
var (
	// ErrHandleTaken reports a login attempt with a handle already in use.
	ErrHandleTaken = errors.New("handle already taken")

	// ErrUnknownHandle reports an operation naming a handle that is not
	// currently connected.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrSelfOffer reports an attempt to offer a file to oneself.
	ErrSelfOffer = errors.New("cannot offer a file to yourself")
)

// Offer is one queued file offer awaiting the recipient's decision.
type Offer struct {
	From     string    // sender handle
	Filename string    // file basename as announced by the sender
	Queued   time.Time // when the offer was accepted into the queue
}

// UserRecord is the registry's view of one connected user.
type UserRecord struct {
	Handle    string
	Addr      string // remote address, for logging and the admin API
	Connected time.Time
	Offers    []Offer // pending inbound offers, oldest first
}

// Registry is the in-memory roster of connected users. The zero value is not
// usable; construct with New.
type Registry struct {
	mu    sync.Mutex
	users map[string]*UserRecord
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		users: make(map[string]*UserRecord),
	}
}

// Add registers a handle. Returns ErrHandleTaken if the handle is already
// connected. The caller validates handle syntax before calling.
func (r *Registry) Add(handle, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[handle]; exists {
		return fmt.Errorf("%w: %q", ErrHandleTaken, handle)
	}

	r.users[handle] = &UserRecord{
		Handle:    handle,
		Addr:      addr,
		Connected: time.Now(),
	}
	return nil
}

// Remove unregisters a handle and drops its pending offers. Removing a
// handle that is not present is a no-op: session teardown must be safe to
// run after a failed login.
func (r *Registry) Remove(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, handle)
}

// Has reports whether a handle is currently connected.
func (r *Registry) Has(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.users[handle]
	return exists
}

// Handles returns all connected handles, sorted. The returned slice is a
// copy and safe to modify.
func (r *Registry) Handles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]string, 0, len(r.users))
	for h := range r.users {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

// ListOthers returns all connected handles except the given one, sorted.
// This is the roster a user sees: everyone but themselves.
func (r *Registry) ListOthers(handle string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]string, 0, len(r.users))
	for h := range r.users {
		if h != handle {
			handles = append(handles, h)
		}
	}
	sort.Strings(handles)
	return handles
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Users returns a snapshot of all connected users, sorted by handle. Offer
// slices are copied; the snapshot is safe to read after the lock is released.
func (r *Registry) Users() []UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]UserRecord, 0, len(r.users))
	for _, u := range r.users {
		rec := *u
		rec.Offers = append([]Offer(nil), u.Offers...)
		users = append(users, rec)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Handle < users[j].Handle })
	return users
}

// AddOffer queues an offer of filename from sender to recipient. Both
// parties must be connected and distinct. Duplicate offers are allowed; they
// queue independently and are resolved oldest-first.
func (r *Registry) AddOffer(from, to, filename string) error {
	if from == to {
		return ErrSelfOffer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[from]; !exists {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, from)
	}
	recipient, exists := r.users[to]
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, to)
	}

	recipient.Offers = append(recipient.Offers, Offer{
		From:     from,
		Filename: filename,
		Queued:   time.Now(),
	})
	return nil
}

// Offers returns a copy of the pending offers queued for handle, oldest
// first. Returns nil if the handle is unknown or has no pending offers.
func (r *Registry) Offers(handle string) []Offer {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[handle]
	if !exists || len(u.Offers) == 0 {
		return nil
	}
	return append([]Offer(nil), u.Offers...)
}

// FirstOfferFrom returns the oldest pending offer for handle sent by from.
// The second return is false when no such offer exists.
func (r *Registry) FirstOfferFrom(handle, from string) (Offer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[handle]
	if !exists {
		return Offer{}, false
	}
	for _, o := range u.Offers {
		if o.From == from {
			return o, true
		}
	}
	return Offer{}, false
}

// RemoveOfferFrom removes the oldest pending offer for handle sent by from
// and returns it. The second return is false when no such offer exists;
// removal is then a no-op, so rejecting with an empty queue is safe.
func (r *Registry) RemoveOfferFrom(handle, from string) (Offer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[handle]
	if !exists {
		return Offer{}, false
	}
	for i, o := range u.Offers {
		if o.From == from {
			u.Offers = append(u.Offers[:i], u.Offers[i+1:]...)
			return o, true
		}
	}
	return Offer{}, false
}
