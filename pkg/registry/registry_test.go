package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndRemove(t *testing.T) {
	r := New()

	require.NoError(t, r.Add("alice", "10.0.0.1:51000"))
	assert.True(t, r.Has("alice"))
	assert.Equal(t, 1, r.Count())

	err := r.Add("alice", "10.0.0.2:51001")
	assert.ErrorIs(t, err, ErrHandleTaken)
	assert.Equal(t, 1, r.Count())

	r.Remove("alice")
	assert.False(t, r.Has("alice"))

	// removing an absent handle is a no-op
	r.Remove("alice")
	assert.Equal(t, 0, r.Count())

	// the handle is free again after removal
	require.NoError(t, r.Add("alice", "10.0.0.2:51001"))
}

func TestHandlesSorted(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("carol", "a"))
	require.NoError(t, r.Add("alice", "b"))
	require.NoError(t, r.Add("bob", "c"))

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.Handles())
}

func TestListOthersExcludesSelf(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))
	require.NoError(t, r.Add("bob", "b"))

	assert.Equal(t, []string{"bob"}, r.ListOthers("alice"))
	assert.Equal(t, []string{"alice"}, r.ListOthers("bob"))
	assert.Empty(t, r.ListOthers("nobody-alone"))
}

func TestAddOffer(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))
	require.NoError(t, r.Add("bob", "b"))

	require.NoError(t, r.AddOffer("alice", "bob", "notes.txt"))

	offers := r.Offers("bob")
	require.Len(t, offers, 1)
	assert.Equal(t, "alice", offers[0].From)
	assert.Equal(t, "notes.txt", offers[0].Filename)

	assert.Empty(t, r.Offers("alice"))
}

func TestAddOfferRejectsSelf(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))

	assert.ErrorIs(t, r.AddOffer("alice", "alice", "f"), ErrSelfOffer)
}

func TestAddOfferRejectsUnknownRecipient(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))

	assert.ErrorIs(t, r.AddOffer("alice", "ghost", "f"), ErrUnknownHandle)
	assert.ErrorIs(t, r.AddOffer("ghost", "alice", "f"), ErrUnknownHandle)
}

func TestOffersResolvedOldestFirst(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))
	require.NoError(t, r.Add("bob", "b"))
	require.NoError(t, r.Add("carol", "c"))

	require.NoError(t, r.AddOffer("alice", "bob", "first.txt"))
	require.NoError(t, r.AddOffer("carol", "bob", "other.txt"))
	require.NoError(t, r.AddOffer("alice", "bob", "second.txt"))

	got, ok := r.FirstOfferFrom("bob", "alice")
	require.True(t, ok)
	assert.Equal(t, "first.txt", got.Filename)

	// removal takes the oldest matching offer, skipping carol's
	removed, ok := r.RemoveOfferFrom("bob", "alice")
	require.True(t, ok)
	assert.Equal(t, "first.txt", removed.Filename)

	removed, ok = r.RemoveOfferFrom("bob", "alice")
	require.True(t, ok)
	assert.Equal(t, "second.txt", removed.Filename)

	// carol's offer is untouched
	offers := r.Offers("bob")
	require.Len(t, offers, 1)
	assert.Equal(t, "carol", offers[0].From)
}

func TestRemoveOfferFromEmptyQueue(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("bob", "b"))

	_, ok := r.RemoveOfferFrom("bob", "alice")
	assert.False(t, ok)

	_, ok = r.RemoveOfferFrom("ghost", "alice")
	assert.False(t, ok)
}

func TestRemoveDropsPendingOffers(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))
	require.NoError(t, r.Add("bob", "b"))
	require.NoError(t, r.AddOffer("alice", "bob", "f"))

	r.Remove("bob")
	require.NoError(t, r.Add("bob", "b"))
	assert.Empty(t, r.Offers("bob"))
}

func TestOffersReturnsCopy(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("alice", "a"))
	require.NoError(t, r.Add("bob", "b"))
	require.NoError(t, r.AddOffer("alice", "bob", "f"))

	offers := r.Offers("bob")
	offers[0].Filename = "mutated"

	fresh := r.Offers("bob")
	assert.Equal(t, "f", fresh[0].Filename)
}

func TestUsersSnapshot(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("bob", "10.0.0.2:51001"))
	require.NoError(t, r.Add("alice", "10.0.0.1:51000"))
	require.NoError(t, r.AddOffer("alice", "bob", "f"))

	users := r.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Handle)
	assert.Equal(t, "bob", users[1].Handle)
	assert.Equal(t, "10.0.0.2:51001", users[1].Addr)
	require.Len(t, users[1].Offers, 1)
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	require.NoError(t, r.Add("target", "t"))

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			handle := fmt.Sprintf("user-%d", n)
			if err := r.Add(handle, "addr"); err != nil {
				return
			}
			_ = r.AddOffer(handle, "target", "file.bin")
			_ = r.ListOthers(handle)
			_, _ = r.FirstOfferFrom("target", handle)
			r.Remove(handle)
		}(i)
	}
	wg.Wait()

	assert.True(t, r.Has("target"))
	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.Offers("target"), workers)
}
