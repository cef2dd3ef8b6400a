package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/service-storefront/internal/session"
	"github.com/iliyamo/service-storefront/internal/utils"
)

// RedisSessionRepo persists sessions as JSON strings with a TTL.  A second
// key per session indexes it by bearer token hash so DeleteByToken does
// not need a scan.
type RedisSessionRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSessionRepo(rdb *redis.Client, prefix string) *RedisSessionRepo {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisSessionRepo{rdb: rdb, prefix: prefix}
}

func (r *RedisSessionRepo) recKey(key string) string { return r.prefix + ":id:" + key }

func (r *RedisSessionRepo) tokKey(token string) string {
	return r.prefix + ":tok:" + utils.HashToken(token)
}

func (r *RedisSessionRepo) Load(ctx context.Context, key string) (session.Record, error) {
	raw, err := r.rdb.Get(ctx, r.recKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Record{}, session.ErrNoSession
	}
	if err != nil {
		return session.Record{}, err
	}
	var rec session.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return session.Record{}, err
	}
	return rec, nil
}

func (r *RedisSessionRepo) Save(ctx context.Context, key string, rec session.Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.recKey(key), raw, ttl)
	if rec.Token != "" {
		pipe.SAdd(ctx, r.tokKey(rec.Token), key)
		pipe.Expire(ctx, r.tokKey(rec.Token), ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisSessionRepo) Delete(ctx context.Context, key string) (int, error) {
	n, err := r.rdb.Del(ctx, r.recKey(key)).Result()
	return int(n), err
}

func (r *RedisSessionRepo) DeleteByToken(ctx context.Context, token string) (int, error) {
	idx := r.tokKey(token)
	keys, err := r.rdb.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	pipe := r.rdb.TxPipeline()
	dels := make([]*redis.IntCmd, 0, len(keys))
	for _, k := range keys {
		dels = append(dels, pipe.Del(ctx, r.recKey(k)))
	}
	pipe.Del(ctx, idx)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dels {
		n += int(d.Val())
	}
	return n, nil
}
