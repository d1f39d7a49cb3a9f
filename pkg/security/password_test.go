package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func testHasher() *security.Hasher {
	return security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("very-secure-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := h.Verify("very-secure-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("Verify failed for the correct password")
	}

	ok, err = h.Verify("bogus-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyUsesParamsFromHash(t *testing.T) {
	hash, err := testHasher().Hash("pw-123456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	other := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 2, ArgonParallelism: 2, ArgonSaltLen: 8, ArgonKeyLen: 16})
	ok, err := other.Verify("pw-123456", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification with embedded params, got %v %v", ok, err)
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	h := testHasher()
	for _, bad := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5"} {
		if _, err := h.Verify("irrelevant", bad); err != security.ErrInvalidHash {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", bad, err)
		}
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := testHasher().Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16})
	hash, err := weak.Hash("pw-123456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if weak.NeedsRehash(hash) {
		t.Fatalf("hash made with current settings should not need a rehash")
	}
	if !testHasher().NeedsRehash(hash) {
		t.Fatalf("stronger settings should ask for a rehash")
	}
	if !testHasher().NeedsRehash("garbage") {
		t.Fatalf("unreadable hashes should be rehashed")
	}
}

func TestVerifyRejectsOtherArgonVersion(t *testing.T) {
	hash, err := testHasher().Hash("pw-123456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	old := strings.Replace(hash, "v=19", "v=16", 1)
	if _, err := testHasher().Verify("pw-123456", old); err != security.ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
