package smssvc

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

const (
	codeDigits = 6
	keyPrefix  = "otp:"
)

var ErrCodeNotFound = errors.New("otp code not found")

// CodeStore keeps pending codes until they expire.
type CodeStore interface {
	Set(ctx context.Context, key, code string, ttl time.Duration) error
	// Get returns ErrCodeNotFound when there is no pending code.
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// LocalVerifier generates codes itself and logs them instead of sending an SMS.
// Used in DEV and TEST, and when no Twilio service is configured.
type LocalVerifier struct {
	store  CodeStore
	ttl    time.Duration
	logger core.Logger
	rand   io.Reader
}

var _ user.OTPVerifier = (*LocalVerifier)(nil)

func NewLocalVerifier(store CodeStore, conf *core.Config, logger core.Logger) *LocalVerifier {
	return &LocalVerifier{store: store, ttl: conf.OTPCodeTTL, logger: logger, rand: rand.Reader}
}

func (v *LocalVerifier) newCode() (string, error) {
	n, err := rand.Int(v.rand, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Wrap(err, "rand.Int")
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func (v *LocalVerifier) SendCode(ctx context.Context, phone string) error {
	code, err := v.newCode()
	if err != nil {
		return err
	}
	if err = v.store.Set(ctx, keyPrefix+phone, code, v.ttl); err != nil {
		return errors.Wrap(err, "storing otp code")
	}
	v.logger.Info("otp code: "+code, map[string]interface{}{"phone": phone})
	return nil
}

func (v *LocalVerifier) CheckCode(ctx context.Context, phone, code string) (bool, error) {
	key := keyPrefix + phone
	want, err := v.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "reading otp code")
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
		return false, nil
	}
	// codes are single use
	if err = v.store.Del(ctx, key); err != nil {
		return false, errors.Wrap(err, "deleting otp code")
	}
	return true, nil
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(conf *core.Config) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Set(ctx context.Context, key, code string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, code, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	code, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	return code, err
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Set(_ context.Context, key, code string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{code: code, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", ErrCodeNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", ErrCodeNotFound
	}
	return e.code, nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
