package identity

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]User
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[user.ID]; exists {
		return errors.New("user exists")
	}
	for _, u := range r.storage {
		if u.Email == user.Email || u.Username == user.Username {
			return errors.New("user exists")
		}
	}
	r.storage[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.storage[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) find(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.storage {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	return r.find(func(u User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	return r.find(func(u User) bool { return u.Username == username })
}

func (r *memoryRepository) FindByAccountNumber(_ context.Context, accountNumber string) (User, error) {
	return r.find(func(u User) bool { return u.AccountNumber == accountNumber })
}

func (r *memoryRepository) update(id string, apply func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.storage[id]
	if !ok {
		return ErrUserNotFound
	}
	apply(&user)
	r.storage[id] = user
	return nil
}

func (r *memoryRepository) UpdatePIN(_ context.Context, id string, pinHash []byte) error {
	return r.update(id, func(u *User) { u.PINHash = pinHash })
}

func (r *memoryRepository) UpdateBank(_ context.Context, id string, bank BankDetail) error {
	return r.update(id, func(u *User) { u.Bank = bank })
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.update(id, func(u *User) { u.TokenVersion = version })
}
