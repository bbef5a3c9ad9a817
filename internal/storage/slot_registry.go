package storage

import (
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/studiahub/studiahub/internal/domain"
)

// SlotRegistry holds issued upload slots until they are confirmed or expire.
// Slots are addressable both by transfer token (the PUT path) and by the
// remote key (the confirm call).
type SlotRegistry struct {
	mu      sync.RWMutex
	byToken *ttlworker.Cache[string, *domain.UploadSlot]
	byKey   *ttlworker.Cache[string, *domain.UploadSlot]
}

// NewSlotRegistry creates a registry whose slots expire after the given TTL.
func NewSlotRegistry(ttl time.Duration) *SlotRegistry {
	return &SlotRegistry{
		byToken: ttlworker.NewCache[string, *domain.UploadSlot](ttl),
		byKey:   ttlworker.NewCache[string, *domain.UploadSlot](ttl),
	}
}

// Issue registers a freshly granted slot.
func (r *SlotRegistry) Issue(slot *domain.UploadSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken.Set(slot.Token, slot)
	r.byKey.Set(slot.Key, slot)
}

// ByToken looks up a live slot by its transfer token.
func (r *SlotRegistry) ByToken(token string) (*domain.UploadSlot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot := r.byToken.Get(token)
	return slot, slot != nil
}

// ByKey looks up a live slot by its remote key.
func (r *SlotRegistry) ByKey(key string) (*domain.UploadSlot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot := r.byKey.Get(key)
	return slot, slot != nil
}

// MarkReceived records that the bytes for a slot have been transferred.
func (r *SlotRegistry) MarkReceived(token string, size int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.byToken.Get(token)
	if slot == nil {
		return false
	}
	slot.Received = true
	slot.ReceivedSize = size
	r.byToken.Set(slot.Token, slot)
	r.byKey.Set(slot.Key, slot)
	return true
}

// Remove drops a slot from the registry, typically after confirmation.
func (r *SlotRegistry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.byKey.Get(key)
	if slot == nil {
		return
	}
	r.byToken.Delete(slot.Token)
	r.byKey.Delete(key)
}
