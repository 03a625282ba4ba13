package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisKeyPrefix   = "revalidator:assessment:"
	redisIndexKey    = "revalidator:assessments"
	redisMaxRetries  = 10
	redisPingTimeout = 5 * time.Second
	redisDefaultURL  = "redis://localhost:6379"
)

// RedisStore: документ лежит JSON строкой под своим ключом, порядок создания
// хранится в sorted set (score = created_at в наносекундах)
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	if url == "" {
		url = redisDefaultURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w: %v", opts.Addr, ErrNotConnected, err)
	}

	log.Info().Str("addr", opts.Addr).Msg("💾 Redis store initialized")
	return &RedisStore{client: client}, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, doc *models.AssessmentDocument) error {
	if err := prepareNew(doc); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, redisKey(doc.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}
	if !ok {
		return fmt.Errorf("create %s: %w", doc.ID, ErrAlreadyExists)
	}

	member := redis.Z{Score: float64(doc.CreatedAt.UnixNano()), Member: doc.ID}
	if err := s.client.ZAdd(ctx, redisIndexKey, member).Err(); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.AssessmentDocument, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return decode(data)
}

// Update - оптимистичная транзакция WATCH/MULTI, повтор при конкурентной записи
func (s *RedisStore) Update(ctx context.Context, id string, fn MutateFunc) (*models.AssessmentDocument, error) {
	key := redisKey(id)
	var result *models.AssessmentDocument

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("update %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to read document %s: %w", id, err)
		}

		doc, err := decode(data)
		if err != nil {
			return err
		}
		if err := applyMutation(doc, fn); err != nil {
			return err
		}
		updated, err := encode(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		if err == nil {
			result = doc
		}
		return err
	}

	for attempt := 0; attempt < redisMaxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug().Str("document_id", id).Int("attempt", attempt+1).Msg("🔁 Concurrent write, retrying update")
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update %s: too many concurrent writers", id)
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]models.AssessmentSummary, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, int64(normalizeLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	summaries := make([]models.AssessmentSummary, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, doc.Summarize())
	}
	return summaries, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
