package campaign

import (
	"context"
	"errors"
	"sort"
	"sync"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("campaign not found")

// Repo persists campaigns. Whoever implements it enforces the
// at-most-one-ACTIVE invariant; the recovery core only ever reads
// the active campaign.
type Repo interface {
	List(ctx context.Context) ([]Campaign, error)
	Active(ctx context.Context) (*Campaign, error)
	Save(ctx context.Context, c Campaign) (Campaign, error)
	SetStatus(ctx context.Context, id string, status Status) (Campaign, error)
	Seed(ctx context.Context) error
}

// pickActive returns the first ACTIVE campaign in priority order,
// falling back to the first campaign when none is active.
func pickActive(campaigns []Campaign) *Campaign {
	if len(campaigns) == 0 {
		return nil
	}
	for i := range campaigns {
		if campaigns[i].Status == StatusActive {
			return &campaigns[i]
		}
	}
	return &campaigns[0]
}

func sortByPriority(campaigns []Campaign) {
	sort.SliceStable(campaigns, func(i, j int) bool {
		return campaigns[i].Priority < campaigns[j].Priority
	})
}

// GormRepo is the Postgres-backed implementation.
type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) List(ctx context.Context) ([]Campaign, error) {
	var out []Campaign
	err := r.DB.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("priority asc").
		Find(&out).Error
	return out, err
}

func (r *GormRepo) Active(ctx context.Context) (*Campaign, error) {
	campaigns, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return pickActive(campaigns), nil
}

func (r *GormRepo) Save(ctx context.Context, c Campaign) (Campaign, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Steps").Save(&c).Error; err != nil {
			return err
		}
		// replace the step sequence wholesale
		if err := tx.Where("campaign_id = ?", c.ID).Delete(&Step{}).Error; err != nil {
			return err
		}
		for i := range c.Steps {
			c.Steps[i].CampaignID = c.ID
			c.Steps[i].Position = i
			if err := tx.Create(&c.Steps[i]).Error; err != nil {
				return err
			}
		}
		if c.Status == StatusActive {
			return pauseOtherActive(tx, c.ID)
		}
		return nil
	})
	return c, err
}

func (r *GormRepo) SetStatus(ctx context.Context, id string, status Status) (Campaign, error) {
	var target Campaign
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Steps").Where("id = ?", id).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		target.Status = status
		if err := tx.Model(&Campaign{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return err
		}
		if status == StatusActive {
			return pauseOtherActive(tx, id)
		}
		return nil
	})
	return target, err
}

func pauseOtherActive(tx *gorm.DB, keepID string) error {
	return tx.Model(&Campaign{}).
		Where("id <> ? AND status = ?", keepID, StatusActive).
		Update("status", StatusPaused).Error
}

func (r *GormRepo) Seed(ctx context.Context) error {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&Campaign{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, c := range DefaultCampaigns() {
		if err := r.DB.WithContext(ctx).Create(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

// MemoryRepo backs the zero-config mode and tests.
type MemoryRepo struct {
	mu        sync.Mutex
	campaigns []Campaign
}

func (r *MemoryRepo) List(_ context.Context) ([]Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Campaign, len(r.campaigns))
	copy(out, r.campaigns)
	sortByPriority(out)
	return out, nil
}

func (r *MemoryRepo) Active(ctx context.Context) (*Campaign, error) {
	campaigns, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return pickActive(campaigns), nil
}

func (r *MemoryRepo) Save(_ context.Context, c Campaign) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for i := range r.campaigns {
		if r.campaigns[i].ID == c.ID {
			r.campaigns[i] = c
			found = true
			break
		}
	}
	if !found {
		r.campaigns = append(r.campaigns, c)
	}
	if c.Status == StatusActive {
		r.pauseOthersLocked(c.ID)
	}
	return c, nil
}

func (r *MemoryRepo) SetStatus(_ context.Context, id string, status Status) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.campaigns {
		if r.campaigns[i].ID != id {
			continue
		}
		r.campaigns[i].Status = status
		if status == StatusActive {
			r.pauseOthersLocked(id)
		}
		return r.campaigns[i], nil
	}
	return Campaign{}, ErrNotFound
}

func (r *MemoryRepo) pauseOthersLocked(keepID string) {
	for i := range r.campaigns {
		if r.campaigns[i].ID != keepID && r.campaigns[i].Status == StatusActive {
			r.campaigns[i].Status = StatusPaused
		}
	}
}

func (r *MemoryRepo) Seed(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.campaigns) == 0 {
		r.campaigns = DefaultCampaigns()
	}
	return nil
}
