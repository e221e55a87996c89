// Package cache decorates a user repository with a redis write-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

const DefaultTTL = 5 * time.Minute

// UserRepository serves FindByID from redis when Save has cached the user.
// Entries are written only by Save, never on a read miss. Delete leaves a
// tombstone for one TTL so a Save racing with it cannot cache the user again.
// FindByEmail always goes to the backing store because the uniqueness check
// must see the latest data. Cache failures are logged and never fail the call.
type UserRepository struct {
	next   repository.UserRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.Decorator      = (*UserRepository)(nil)
)

// NewUserRepository returns next unchanged when rdb is nil.
func NewUserRepository(next repository.UserRepository, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) repository.UserRepository {
	if rdb == nil {
		return next
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserRepository{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// KEYS[1] entry, KEYS[2] tombstone; ARGV[1] payload, ARGV[2] ttl in ms
var storeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
  redis.call("DEL", KEYS[1])
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// KEYS[1] entry, KEYS[2] tombstone; ARGV[1] ttl in ms
var evictScript = redis.NewScript(`
redis.call("SET", KEYS[2], "1", "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

type userRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func UserKey(id vo.UserID) string { return "user:" + id.String() }

func TombstoneKey(id vo.UserID) string { return "user:deleted:" + id.String() }

func (r *UserRepository) Unwrap() repository.UserRepository { return r.next }

func (r *UserRepository) FindByID(ctx context.Context, id vo.UserID) (*entity.User, error) {
	var rec userRecord
	hit, err := helpers.RedisGetJSON(ctx, r.rdb, UserKey(id), &rec)
	switch {
	case errors.Is(err, helpers.ErrCorruptJSON):
		r.warn(err, id, "dropping undecodable cache entry")
		r.drop(ctx, id)
	case err != nil:
		r.warn(err, id, "user cache read failed")
	case hit:
		u, decodeErr := fromRecord(rec)
		if decodeErr == nil {
			return u, nil
		}
		r.warn(decodeErr, id, "dropping undecodable cache entry")
		r.drop(ctx, id)
	}
	return r.next.FindByID(ctx, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email vo.Email) (*entity.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if err := r.next.Save(ctx, u); err != nil {
		return err
	}
	r.store(ctx, u)
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id vo.UserID) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	keys := []string{UserKey(id), TombstoneKey(id)}
	if err := evictScript.Run(ctx, r.rdb, keys, r.ttl.Milliseconds()).Err(); err != nil {
		r.warn(err, id, "user cache evict failed")
	}
	return nil
}

func (r *UserRepository) store(ctx context.Context, u *entity.User) {
	b, err := json.Marshal(userRecord{
		ID:        u.ID().String(),
		Email:     u.Email().String(),
		Name:      u.Name(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	})
	if err != nil {
		r.warn(err, u.ID(), "user cache encode failed")
		return
	}
	keys := []string{UserKey(u.ID()), TombstoneKey(u.ID())}
	if err := storeScript.Run(ctx, r.rdb, keys, b, r.ttl.Milliseconds()).Err(); err != nil {
		r.warn(err, u.ID(), "user cache write failed")
	}
}

// drop removes a bad entry without leaving a tombstone.
func (r *UserRepository) drop(ctx context.Context, id vo.UserID) {
	if err := r.rdb.Del(ctx, UserKey(id)).Err(); err != nil {
		r.warn(err, id, "user cache evict failed")
	}
}

func (r *UserRepository) warn(err error, id vo.UserID, msg string) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("user_id", id.String()).Warn(msg)
	}
}

func fromRecord(rec userRecord) (*entity.User, error) {
	id, err := vo.ParseUserID(rec.ID)
	if err != nil {
		return nil, err
	}
	email, err := vo.NewEmail(rec.Email)
	if err != nil {
		return nil, err
	}
	return entity.RestoreUser(id, email, rec.Name, rec.CreatedAt, rec.UpdatedAt)
}
