package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost. MemoryKiB is in KiB as argon2.IDKey expects.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted passwords.
type Policy struct {
	MinLength      int
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the whole configuration surface of this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline used for operator accounts.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      10,
			MaxLength:      256,
			RejectVeryWeak: true,
		},
	}
}

// FromEnv loads config from the environment, starting from DefaultConfig.
//
//   - BACKOFFICE_PASSWORD_MIN_LEN, BACKOFFICE_PASSWORD_MAX_LEN
//   - BACKOFFICE_PASSWORD_REJECT_VERY_WEAK
//   - BACKOFFICE_ARGON2_MEMORY_KIB, BACKOFFICE_ARGON2_ITERATIONS, BACKOFFICE_ARGON2_PARALLELISM
//   - BACKOFFICE_ARGON2_SALT_LEN, BACKOFFICE_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{"BACKOFFICE_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"BACKOFFICE_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, f := range ints {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		n, err := parseBounded(v, uint64(f.min), uint64(f.max))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = int(n)
	}

	if v, ok := os.LookupEnv("BACKOFFICE_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("BACKOFFICE_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	u32s := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{"BACKOFFICE_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"BACKOFFICE_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"BACKOFFICE_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"BACKOFFICE_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		n, err := parseBounded(v, uint64(f.min), uint64(f.max))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = uint32(n) // #nosec G115 -- bounded above.
	}

	if v, ok := os.LookupEnv("BACKOFFICE_ARGON2_PARALLELISM"); ok {
		n, err := parseBounded(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("BACKOFFICE_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(n) // #nosec G115 -- bounded above.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}
	return cfg, nil
}

func parseBounded(s string, minVal, maxVal uint64) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}
