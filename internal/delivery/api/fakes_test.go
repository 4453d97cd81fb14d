package api

import (
	"context"
	"maps"
	"sync"
	"time"

	"authservice/internal/domain/entity"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/domain/repository"
	"authservice/internal/errors"

	"github.com/google/uuid"
)

// memoryStore backs the repositories with maps. Execute snapshots both maps
// and restores them when the callback fails.
type memoryStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*entity.User
	tokens     map[uuid.UUID]*entity.RefreshToken
	failTokens bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:  make(map[uuid.UUID]*entity.User),
		tokens: make(map[uuid.UUID]*entity.RefreshToken),
	}
}

func (s *memoryStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens)
}

func (s *memoryStore) hasToken(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[id]

	return ok
}

func (s *memoryStore) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	s.mu.Lock()
	users := maps.Clone(s.users)
	tokens := maps.Clone(s.tokens)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users = users
		s.tokens = tokens
		s.mu.Unlock()

		return err
	}

	return nil
}

func (s *memoryStore) UserRepo() repository.UserRepository { return &memoryUsers{s} }

func (s *memoryStore) RefreshTokenRepo() repository.RefreshTokenRepository { return &memoryTokens{s} }

type memoryUsers struct{ s *memoryStore }

func (r *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user

	return &clone, nil
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			clone := *user

			return &clone, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memoryUsers) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return domainerrors.ErrDuplicateEmail.WrapMessage("email already exists")
		}
	}

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.s.users[user.ID] = &clone

	return nil
}

func (r *memoryUsers) Clear(context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	clear(r.s.users)
	clear(r.s.tokens)

	return nil
}

type memoryTokens struct{ s *memoryStore }

func (r *memoryTokens) Create(_ context.Context, token *entity.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.failTokens {
		return domainerrors.NewDatabaseExecuteError(errors.New("connection reset"), "failed to create refresh token")
	}

	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	clone := *token
	r.s.tokens[token.ID] = &clone

	return nil
}

func (r *memoryTokens) FindByID(_ context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.tokens[id]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if token.IsExpired(time.Now()) {
		return nil, repository.ErrRefreshTokenExpired
	}
	clone := *token

	return &clone, nil
}

func (r *memoryTokens) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[id]; !ok {
		return repository.ErrRefreshTokenNotFound
	}
	delete(r.s.tokens, id)

	return nil
}

func (r *memoryTokens) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	maps.DeleteFunc(r.s.tokens, func(_ uuid.UUID, token *entity.RefreshToken) bool {
		return token.UserID == userID
	})

	return nil
}

func (r *memoryTokens) DeleteExpired(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	before := len(r.s.tokens)
	maps.DeleteFunc(r.s.tokens, func(_ uuid.UUID, token *entity.RefreshToken) bool {
		return token.IsExpired(now)
	})

	return int64(before - len(r.s.tokens)), nil
}
