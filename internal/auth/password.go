package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrPasswordMismatch is returned by Compare when the password does not match the hash.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordHasher runs bcrypt with a bounded number of concurrent hash
// operations. Each operation runs on its own goroutine so a caller whose
// context is cancelled stops waiting immediately.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted

	// dummyHash is compared against when no user exists so both login
	// failure paths spend the same bcrypt time.
	dummyOnce sync.Once
	dummyHash string
}

// NewPasswordHasher returns a hasher with the given bcrypt cost and at most
// maxConcurrent simultaneous hash operations. Zero values pick defaults.
func NewPasswordHasher(cost, maxConcurrent int) *PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Hash returns a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	var hashed []byte
	err := h.run(ctx, func() error {
		var err error
		hashed, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns ErrPasswordMismatch if password does not match hash.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) error {
	return h.run(ctx, func() error {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	})
}

// CompareDummy burns one comparison's worth of time and fails with
// ErrPasswordMismatch, or with the context error if ctx ends first.
func (h *PasswordHasher) CompareDummy(ctx context.Context, password string) error {
	h.dummyOnce.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), h.cost)
		if err == nil {
			h.dummyHash = string(hashed)
		}
	})
	if h.dummyHash != "" {
		if err := h.Compare(ctx, h.dummyHash, password); err != nil && !errors.Is(err, ErrPasswordMismatch) {
			return err
		}
	}
	return ErrPasswordMismatch
}

func (h *PasswordHasher) run(ctx context.Context, fn func() error) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire hasher slot: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		defer h.sem.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
