package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studiahub/studiahub/internal/domain"
)

func testSlot() *domain.UploadSlot {
	return &domain.UploadSlot{
		Token:        "tok-1",
		Key:          "key-1",
		UserID:       "u1",
		FileName:     "notes.pdf",
		ContentType:  "application/pdf",
		DeclaredSize: 42,
		CreatedAt:    time.Now(),
	}
}

func TestSlotRegistry_IssueAndLookup(t *testing.T) {
	reg := NewSlotRegistry(time.Minute)
	reg.Issue(testSlot())

	byToken, ok := reg.ByToken("tok-1")
	assert.True(t, ok)
	assert.Equal(t, "key-1", byToken.Key)

	byKey, ok := reg.ByKey("key-1")
	assert.True(t, ok)
	assert.Equal(t, "tok-1", byKey.Token)

	_, ok = reg.ByToken("unknown")
	assert.False(t, ok)
}

func TestSlotRegistry_MarkReceived(t *testing.T) {
	reg := NewSlotRegistry(time.Minute)
	reg.Issue(testSlot())

	assert.True(t, reg.MarkReceived("tok-1", 1000))
	assert.False(t, reg.MarkReceived("unknown", 1000))

	slot, ok := reg.ByKey("key-1")
	assert.True(t, ok)
	assert.True(t, slot.Received)
	assert.Equal(t, int64(1000), slot.ReceivedSize)
}

func TestSlotRegistry_Remove(t *testing.T) {
	reg := NewSlotRegistry(time.Minute)
	reg.Issue(testSlot())

	reg.Remove("key-1")

	_, ok := reg.ByToken("tok-1")
	assert.False(t, ok)
	_, ok = reg.ByKey("key-1")
	assert.False(t, ok)
}

func TestSlotRegistry_SlotsExpire(t *testing.T) {
	reg := NewSlotRegistry(50 * time.Millisecond)
	reg.Issue(testSlot())

	_, ok := reg.ByToken("tok-1")
	assert.True(t, ok)

	time.Sleep(120 * time.Millisecond)

	_, ok = reg.ByToken("tok-1")
	assert.False(t, ok)
	_, ok = reg.ByKey("key-1")
	assert.False(t, ok)
}
