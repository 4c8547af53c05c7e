// Package users registers players and keeps their win counts.
package users

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/broadside/server/pkg/core"
)

// MinNameLength and MinPasswordLength are the shortest accepted credentials.
const (
	MinNameLength     = 5
	MinPasswordLength = 5
)

var (
	ErrInvalidName     = fmt.Errorf("name must be at least %d characters", MinNameLength)
	ErrInvalidPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrWrongPassword   = errors.New("wrong password")
)

// Store is the subset of a storage backend the service needs.
type Store interface {
	GetUser(name string) (*core.User, error)
	CreateUser(u *core.User) error
	IncrementWins(name string) error
	ListUsers() ([]core.User, error)
}

// Service registers and authenticates users.
type Service struct {
	store  Store
	logger *slog.Logger
	cost   int
}

// NewService creates a user service on top of store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

// SetCost changes the bcrypt cost used for new password hashes.
func (s *Service) SetCost(cost int) {
	s.cost = cost
}

// Validate checks credential lengths. Both problems are reported together.
func Validate(name, password string) error {
	var errs []error
	if utf8.RuneCountInString(name) < MinNameLength {
		errs = append(errs, ErrInvalidName)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs = append(errs, ErrInvalidPassword)
	}
	return errors.Join(errs...)
}

// Register logs in an existing user or creates a new one. An existing name requires
// the password it was registered with.
func (s *Service) Register(name, password string) (*core.User, error) {
	if err := Validate(name, password); err != nil {
		return nil, err
	}

	u, err := s.store.GetUser(name)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
			return nil, ErrWrongPassword
		}
		s.logger.Debug("user logged in", "name", name)
		return u, nil
	case !errors.Is(err, core.ErrUserNotFound):
		return nil, fmt.Errorf("get user %s: %w", name, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u = &core.User{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(u); err != nil {
		return nil, fmt.Errorf("create user %s: %w", name, err)
	}
	s.logger.Info("user registered", "name", name, "id", u.ID)
	return u, nil
}

// RecordWin credits one win to the named user.
func (s *Service) RecordWin(name string) error {
	if err := s.store.IncrementWins(name); err != nil {
		return fmt.Errorf("increment wins for %s: %w", name, err)
	}
	return nil
}

// Winners lists every registered user, most wins first. Ties are ordered by name.
func (s *Service) Winners() ([]core.Winner, error) {
	all, err := s.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	winners := make([]core.Winner, 0, len(all))
	for _, u := range all {
		winners = append(winners, core.Winner{Name: u.Name, Wins: u.Wins})
	}
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Wins != winners[j].Wins {
			return winners[i].Wins > winners[j].Wins
		}
		return winners[i].Name < winners[j].Name
	})
	return winners, nil
}
