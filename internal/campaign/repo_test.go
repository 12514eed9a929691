package campaign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndActive(t *testing.T) {
	repo := &MemoryRepo{}
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx))
	// seeding twice keeps the first set
	require.NoError(t, repo.Seed(ctx))

	campaigns, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, "Core Recovery", campaigns[0].Name)
	assert.Equal(t, StatusActive, campaigns[0].Status)
	assert.Equal(t, "VIP Rescue", campaigns[1].Name)

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "Core Recovery", active.Name)
	assert.Len(t, active.Steps, 3)
}

func TestActivatingPausesOthers(t *testing.T) {
	repo := &MemoryRepo{}
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx))

	campaigns, err := repo.List(ctx)
	require.NoError(t, err)
	vipID := campaigns[1].ID

	vip, err := repo.SetStatus(ctx, vipID, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, vip.Status)

	campaigns, err = repo.List(ctx)
	require.NoError(t, err)
	activeCount := 0
	for _, c := range campaigns {
		if c.Status == StatusActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "VIP Rescue", active.Name)
}

func TestSetStatusUnknownID(t *testing.T) {
	repo := &MemoryRepo{}
	require.NoError(t, repo.Seed(context.Background()))

	_, err := repo.SetStatus(context.Background(), "nope", StatusPaused)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveFallsBackToFirst(t *testing.T) {
	repo := &MemoryRepo{}
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx))

	campaigns, err := repo.List(ctx)
	require.NoError(t, err)
	for _, c := range campaigns {
		_, err := repo.SetStatus(ctx, c.ID, StatusPaused)
		require.NoError(t, err)
	}

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "Core Recovery", active.Name)
}

func TestStepForAttemptClamps(t *testing.T) {
	c := DefaultCampaigns()[0]

	assert.Equal(t, ToneSteady, c.StepForAttempt(0).Tone)
	assert.Equal(t, ToneUrgent, c.StepForAttempt(1).Tone)
	assert.Equal(t, ToneRescue, c.StepForAttempt(2).Tone)
	// attempts past the sequence reuse the last step
	assert.Equal(t, ToneRescue, c.StepForAttempt(9).Tone)

	var none *Campaign
	assert.Nil(t, none.StepForAttempt(0))
}
