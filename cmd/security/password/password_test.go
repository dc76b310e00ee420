package password

import "testing"

// testConfig keeps Argon2id cheap so the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHashAndVerify_OK(t *testing.T) {
	cfg := testConfig()

	h, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "correct horse battery")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := testConfig()

	h, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong password")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := testConfig()

	for _, h := range []string{"not-a-hash", "$argon2i$v=19$m=1,t=1,p=1$AAAA$AAAA", "$argon2id$v=16$m=1,t=1,p=1$AAAA$AAAA"} {
		ok, err := cfg.Verify(h, "whatever")
		if err != ErrInvalidHash || ok {
			t.Fatalf("Verify(%q) = %v, %v", h, ok, err)
		}
	}
}

func TestVerify_RefusesOversizedParams(t *testing.T) {
	strong := testConfig()
	strong.Params.MemoryKiB = 64 * 1024

	h, err := strong.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	weak := testConfig()
	if _, err := weak.Verify(h, "correct horse battery"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	cfg := testConfig()

	h, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if cfg.NeedsRehash(h) {
		t.Fatalf("fresh hash should not need rehash")
	}

	bumped := cfg
	bumped.Params.Iterations = 2
	if !bumped.NeedsRehash(h) {
		t.Fatalf("expected rehash after cost change")
	}
	if !cfg.NeedsRehash("garbage") {
		t.Fatalf("malformed hash should need rehash")
	}
}

func TestVerifyDummy_DoesNotPanic(t *testing.T) {
	testConfig().VerifyDummy("anything")
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 12
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 8

	for _, pw := range []string{"password", "11111111", "aaaaaaaaaa", "BackOffice"} {
		if err := cfg.Validate(pw); err != ErrWeakPassword {
			t.Fatalf("Validate(%q): expected ErrWeakPassword, got %v", pw, err)
		}
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
