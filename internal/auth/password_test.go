package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher failed: %v", err)
	}
	return h
}

func TestNewPasswordHasher_RejectsOutOfRangeCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost - 1, bcrypt.MaxCost + 1} {
		if _, err := NewPasswordHasher(cost); err == nil {
			t.Errorf("NewPasswordHasher(%d) expected error", cost)
		}
	}
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	ok, err := h.Verify(hash, "secret")
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v; want true, nil", ok, err)
	}

	ok, err = h.Verify(hash, "Secret")
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v; want false, nil", ok, err)
	}
}

func TestPasswordHasher_HashIsOpaqueAndSalted(t *testing.T) {
	h := newTestHasher(t)

	first, _ := h.Hash("secret")
	second, _ := h.Hash("secret")

	if first == second {
		t.Error("同じパスワードでもハッシュは毎回異なるべき")
	}
	if strings.Contains(first, "secret") {
		t.Error("ハッシュに平文パスワードが含まれている")
	}
	cost, err := bcrypt.Cost([]byte(first))
	if err != nil {
		t.Fatalf("bcrypt.Cost failed: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.MinCost)
	}
}

func TestPasswordHasher_Verify_MalformedHash(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Verify("not-a-bcrypt-hash", "secret"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
