package registry

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/schema"
	"github.com/drpcorg/binmeta/utils"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	// Addr is the Redis server address (host:port)
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key the registry touches.
	Prefix string
	Logger utils.Logger
}

func (o *RedisOptions) SetDefaults() {
	if o.Addr == "" {
		o.Addr = "localhost:6379"
	}
	if o.Prefix == "" {
		o.Prefix = "binmeta:"
	}
}

// Redis shares snapshots between processes. Each type is one key holding
// the snapshot TLV; TryPublish is a WATCH/MULTI transaction on that key,
// so the compare-and-swap is done by the server.
type Redis struct {
	client *redis.Client
	prefix string
	log    utils.Logger
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	opts.SetDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect registry at %s", opts.Addr)
	}
	return NewRedisWithClient(client, opts), nil
}

func NewRedisWithClient(client *redis.Client, opts RedisOptions) *Redis {
	opts.SetDefaults()
	return &Redis{client: client, prefix: opts.Prefix, log: opts.Logger}
}

func (r *Redis) typeKey(typeID int32) string {
	return r.prefix + "type:" + strconv.FormatInt(int64(typeID), 10)
}

func (r *Redis) typesKey() string {
	return r.prefix + "types"
}

func (r *Redis) Fetch(ctx context.Context, typeID int32) (*schema.Snapshot, error) {
	data, err := r.client.Get(ctx, r.typeKey(typeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, binmeta_errors.ErrTypeUnknown
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get type %d", typeID)
	}
	return schema.ParseSnapshot(data)
}

func (r *Redis) TryPublish(ctx context.Context, expected, updated *schema.Snapshot) (*schema.Snapshot, bool, error) {
	key := r.typeKey(updated.TypeID())
	var current *schema.Snapshot
	var stale bool
	txf := func(tx *redis.Tx) error {
		current, stale = nil, false
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if current, err = schema.ParseSnapshot(data); err != nil {
				return err
			}
		}
		stale, err = checkPublish(current, expected, updated)
		if err != nil || stale {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated.TLV(), 0)
			pipe.SAdd(ctx, r.typesKey(), updated.TypeID())
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		// the key changed between WATCH and EXEC
		if r.log != nil {
			r.log.DebugCtx(ctx, "redis publish raced", "type_id", updated.TypeID())
		}
		cur, ferr := r.Fetch(ctx, updated.TypeID())
		if ferr != nil && !errors.Is(ferr, binmeta_errors.ErrTypeUnknown) {
			return nil, false, ferr
		}
		return cur, false, nil
	case err != nil:
		return current, false, errors.Wrapf(err, "publish type %d", updated.TypeID())
	case stale:
		return current, false, nil
	}
	return updated, true, nil
}

func (r *Redis) Types(ctx context.Context) ([]*schema.Snapshot, error) {
	members, err := r.client.SMembers(ctx, r.typesKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list types")
	}
	ret := make([]*schema.Snapshot, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(binmeta_errors.ErrBadSnapshot, "type id %q", m)
		}
		snap, err := r.Fetch(ctx, int32(id))
		if err != nil {
			return nil, err
		}
		ret = append(ret, snap)
	}
	slices.SortFunc(ret, func(a, b *schema.Snapshot) int {
		return cmp.Compare(a.TypeID(), b.TypeID())
	})
	return ret, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
