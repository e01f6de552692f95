package redis

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUserLockKeyIsSharedAcrossScopes(t *testing.T) {
	user := uuid.New()
	key := userLockKey(user)

	if !strings.HasPrefix(key, "planner:lock:user:") {
		t.Fatalf("key = %q, want planner:lock:user: prefix", key)
	}
	if !strings.HasSuffix(key, user.String()) {
		t.Fatalf("key = %q does not carry the user id %s", key, user)
	}
	// The key depends on the user alone, so generation, activation, and
	// adaptation all contend for the same lock.
	if again := userLockKey(user); again != key {
		t.Fatalf("key changed between calls: %q vs %q", key, again)
	}
	if other := userLockKey(uuid.New()); other == key {
		t.Fatalf("different users share lock key %q", key)
	}
}
