package conversation

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// fakeRedis implements redisClient over a map and records TTLs.
type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore_RoundTripKeyLayoutAndTTL(t *testing.T) {
	fr := newFakeRedis()
	s := &RedisStore{client: fr, Prefix: DefaultRedisPrefix, TTL: 30 * time.Minute}
	ctx := context.Background()

	st, err := s.Load(ctx, 42)
	if err != nil || st.Stage != StageIdle {
		t.Fatalf("unknown channel should load idle: %+v %v", st, err)
	}

	want := State{Stage: StageSelectingTime, SelectedService: "manicure", SelectedDate: "2024-06-03"}
	if err := s.Save(ctx, -1001, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	const key = "bookingbot:conv:-1001"
	if _, ok := fr.data[key]; !ok {
		t.Fatalf("expected key %q, have %v", key, fr.data)
	}
	if fr.ttls[key] != 30*time.Minute {
		t.Fatalf("ttl = %v", fr.ttls[key])
	}

	got, err := s.Load(ctx, -1001)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Stage != want.Stage || got.SelectedService != want.SelectedService || got.SelectedDate != want.SelectedDate {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("save should stamp UpdatedAt")
	}

	if err := s.Reset(ctx, -1001); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok := fr.data[key]; ok {
		t.Fatalf("reset should delete the key")
	}
}

func TestRedisStore_CorruptEntryLoadsIdle(t *testing.T) {
	fr := newFakeRedis()
	fr.data[DefaultRedisPrefix+"7"] = "{not json"
	s := &RedisStore{client: fr, Prefix: DefaultRedisPrefix}

	st, err := s.Load(context.Background(), 7)
	if err != nil || st.Stage != StageIdle {
		t.Fatalf("corrupt entry should load idle: %+v %v", st, err)
	}
}

func TestRedisStore_ErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	fr := newFakeRedis()
	fr.err = boom
	s := &RedisStore{client: fr, Prefix: DefaultRedisPrefix}
	ctx := context.Background()

	if _, err := s.Load(ctx, 1); !errors.Is(err, boom) {
		t.Fatalf("load err = %v", err)
	}
	if err := s.Save(ctx, 1, State{Stage: StageAwaitingEmail}); !errors.Is(err, boom) {
		t.Fatalf("save err = %v", err)
	}
	if err := s.Reset(ctx, 1); !errors.Is(err, boom) {
		t.Fatalf("reset err = %v", err)
	}
}

// Runs against a real server only when REDIS_ADDR is set.
func TestRedisStore_LiveServer(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	s := NewRedisStore(client, time.Minute)
	s.Prefix = "bookingbot:test:" + time.Now().Format("150405.000000") + ":"
	if err := s.Save(ctx, 5, State{Stage: StageAwaitingCode}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err := s.Load(ctx, 5)
	if err != nil || st.Stage != StageAwaitingCode {
		t.Fatalf("load: %+v %v", st, err)
	}
	if err := s.Reset(ctx, 5); err != nil {
		t.Fatalf("reset: %v", err)
	}
}
