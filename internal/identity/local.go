package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"costtracker/internal/core"
	"costtracker/internal/storage"
)

// UserStorage is the persistence the local provider needs. The SQLite
// repository satisfies it; MemoryUsers serves the memory backend and tests.
type UserStorage interface {
	CreateUser(ctx context.Context, u storage.UserRecord) error
	UserByEmail(ctx context.Context, email string) (storage.UserRecord, error)
	UserByUID(ctx context.Context, uid string) (storage.UserRecord, error)
}

// LocalProvider implements Provider with bcrypt password hashes and JWT
// session tokens. Logout is modeled the way a hosted provider behaves: the
// token is revoked and nil is pushed to that session's subscribers.
type LocalProvider struct {
	users UserStorage
	jwt   *JWTManager

	mu      sync.Mutex
	revoked map[string]struct{}
	nextID  int
	subs    map[string]map[int]func(*core.User)
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(users UserStorage, jwtManager *JWTManager) *LocalProvider {
	return &LocalProvider{
		users:   users,
		jwt:     jwtManager,
		revoked: make(map[string]struct{}),
		subs:    make(map[string]map[int]func(*core.User)),
	}
}

func (p *LocalProvider) Signup(ctx context.Context, email, password string) (core.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !core.IsValidEmail(email) {
		return core.User{}, "", core.ErrInvalidEmail
	}
	if len(password) < 6 {
		return core.User{}, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	rec := storage.UserRecord{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.users.CreateUser(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return core.User{}, "", ErrEmailTaken
		}
		return core.User{}, "", fmt.Errorf("create user: %w", err)
	}

	user := toUser(rec)
	token, err := p.jwt.Generate(user.UID, user.Email)
	if err != nil {
		return core.User{}, "", err
	}

	slog.InfoContext(ctx, "Signup succeeded", "uid", user.UID, "email", user.Email)
	return user, token, nil
}

func (p *LocalProvider) Login(ctx context.Context, email, password string) (core.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	rec, err := p.users.UserByEmail(ctx, email)
	if err != nil {
		return core.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return core.User{}, "", ErrInvalidCredentials
	}

	user := toUser(rec)
	token, err := p.jwt.Generate(user.UID, user.Email)
	if err != nil {
		return core.User{}, "", err
	}

	slog.InfoContext(ctx, "Login succeeded", "uid", user.UID, "email", user.Email)
	return user, token, nil
}

func (p *LocalProvider) Logout(ctx context.Context, token string) error {
	p.mu.Lock()
	p.revoked[token] = struct{}{}
	fns := make([]func(*core.User), 0, len(p.subs[token]))
	for _, fn := range p.subs[token] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	slog.InfoContext(ctx, "Session revoked", "subscribers", len(fns))
	for _, fn := range fns {
		fn(nil)
	}
	return nil
}

func (p *LocalProvider) Resolve(ctx context.Context, token string) (core.User, error) {
	p.mu.Lock()
	_, dead := p.revoked[token]
	p.mu.Unlock()
	if dead {
		return core.User{}, ErrInvalidToken
	}

	claims, err := p.jwt.Validate(token)
	if err != nil {
		return core.User{}, err
	}

	rec, err := p.users.UserByUID(ctx, claims.UID)
	if err != nil {
		return core.User{}, ErrInvalidToken
	}
	return toUser(rec), nil
}

func (p *LocalProvider) SubscribeAuthState(token string, fn func(*core.User)) (func(), error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	if p.subs[token] == nil {
		p.subs[token] = make(map[int]func(*core.User))
	}
	p.subs[token][id] = fn
	p.mu.Unlock()

	unsubscribe := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if m, ok := p.subs[token]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(p.subs, token)
			}
		}
	}

	// First push: the session's current state.
	if user, err := p.Resolve(context.Background(), token); err != nil {
		fn(nil)
	} else {
		fn(&user)
	}
	return unsubscribe, nil
}

func toUser(rec storage.UserRecord) core.User {
	return core.User{
		UID:         rec.UID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
	}
}

// MemoryUsers is an in-process UserStorage.
type MemoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]storage.UserRecord
	byUID   map[string]storage.UserRecord
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byEmail: make(map[string]storage.UserRecord),
		byUID:   make(map[string]storage.UserRecord),
	}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u storage.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return storage.ErrEmailTaken
	}
	m.byEmail[u.Email] = u
	m.byUID[u.UID] = u
	return nil
}

func (m *MemoryUsers) UserByEmail(_ context.Context, email string) (storage.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return storage.UserRecord{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryUsers) UserByUID(_ context.Context, uid string) (storage.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	if !ok {
		return storage.UserRecord{}, storage.ErrUserNotFound
	}
	return u, nil
}
