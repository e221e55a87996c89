package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/memory"
)

func newUser(t *testing.T, email, name string) *entity.User {
	t.Helper()
	e, err := vo.NewEmail(email)
	require.NoError(t, err)
	u, err := entity.NewUser(e, name)
	require.NoError(t, err)
	return u
}

func TestUserRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	u := newUser(t, "find@example.com", "Finder")

	require.NoError(t, repo.Save(ctx, u))

	byID, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.True(t, byID.Equals(u))

	byEmail, err := repo.FindByEmail(ctx, u.Email())
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.True(t, byEmail.Equals(u))
}

func TestUserRepository_FindAbsentReturnsNil(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	u, err := repo.FindByID(ctx, vo.NewUserID())
	assert.NoError(t, err)
	assert.Nil(t, u)

	e, _ := vo.NewEmail("none@example.com")
	u, err = repo.FindByEmail(ctx, e)
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	u := newUser(t, "copy@example.com", "Original")
	require.NoError(t, repo.Save(ctx, u))

	require.NoError(t, u.Rename("Changed after save"))
	got, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Name())

	require.NoError(t, got.Rename("Changed after find"))
	again, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name())
}

func TestUserRepository_SaveOverwritesAndMovesEmailIndex(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	u := newUser(t, "old@example.com", "Mover")
	require.NoError(t, repo.Save(ctx, u))

	newEmail, _ := vo.NewEmail("new@example.com")
	u.ChangeEmail(newEmail)
	require.NoError(t, repo.Save(ctx, u))

	oldEmail, _ := vo.NewEmail("old@example.com")
	gone, err := repo.FindByEmail(ctx, oldEmail)
	require.NoError(t, err)
	assert.Nil(t, gone)

	found, err := repo.FindByEmail(ctx, newEmail)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, repo.Len())
}

func TestUserRepository_SaveRejectsTakenEmail(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	first := newUser(t, "owned@example.com", "First")
	require.NoError(t, repo.Save(ctx, first))

	second := newUser(t, "OWNED@example.com", "Second")
	assert.ErrorIs(t, repo.Save(ctx, second), repository.ErrEmailTaken)

	got, err := repo.FindByID(ctx, second.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, repo.Len())
}

func TestUserRepository_ConcurrentSaveSameEmail(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	const workers = 16
	users := make([]*entity.User, workers)
	for i := range users {
		users[i] = newUser(t, "cas@example.com", "Racer")
	}
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Save(ctx, users[i])
		}(i)
	}
	wg.Wait()

	saved := 0
	for _, err := range errs {
		if err == nil {
			saved++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrEmailTaken)
	}
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, repo.Len())
}

func TestUserRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	u := newUser(t, "del@example.com", "Del")
	require.NoError(t, repo.Save(ctx, u))

	require.NoError(t, repo.Delete(ctx, u.ID()))
	require.NoError(t, repo.Delete(ctx, u.ID()))
	require.NoError(t, repo.Delete(ctx, vo.NewUserID()))

	got, err := repo.FindByEmail(ctx, u.Email())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, repo.Len())
}

func TestUserRepository_SeedAndClear(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	a := newUser(t, "a@example.com", "A")
	b := newUser(t, "b@example.com", "B")
	require.NoError(t, repo.Seed(a, b))
	assert.Equal(t, 2, repo.Len())

	clash := newUser(t, "a@example.com", "Clash")
	assert.ErrorIs(t, repo.Seed(clash), repository.ErrEmailTaken)

	repo.Clear()
	assert.Equal(t, 0, repo.Len())
	got, err := repo.FindByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}
