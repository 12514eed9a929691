package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("email already registered")
)

// Account is a merchant-side operator login for the admin surface
// (dashboard, settings, campaigns).
type Account struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

func (Account) TableName() string { return "admin_accounts" }

type Accounts interface {
	Create(ctx context.Context, email, passwordHash string) (Account, error)
	ByEmail(ctx context.Context, email string) (Account, error)
}

type GormAccounts struct {
	DB *gorm.DB
}

func (g *GormAccounts) Create(ctx context.Context, email, passwordHash string) (Account, error) {
	a := Account{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	if err := g.DB.WithContext(ctx).Create(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Account{}, ErrEmailExists
		}
		return Account{}, err
	}
	return a, nil
}

func (g *GormAccounts) ByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := g.DB.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrNotFound
	}
	return a, err
}

type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[string]Account)}
}

func (m *MemoryAccounts) Create(_ context.Context, email, passwordHash string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[email]; ok {
		return Account{}, ErrEmailExists
	}
	a := Account{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.accounts[email] = a
	return a, nil
}

func (m *MemoryAccounts) ByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}
