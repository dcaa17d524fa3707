package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/liminalpurple/sayangku/internal/overlay"
	"github.com/redis/go-redis/v9"
)

// DefaultLibraryKey is the Redis key (and legacy browser storage key) holding
// the sticker library
const DefaultLibraryKey = "sayangku-stickers"

// LibraryStore persists the ordered sticker library. Entries are never
// removed or reordered.
type LibraryStore interface {
	List(ctx context.Context) ([]overlay.SavedSticker, error)
	Append(ctx context.Context, sticker overlay.SavedSticker) error
}

// FileLibrary keeps the library in stickers.json
type FileLibrary struct {
	dataDir string
	mu      sync.Mutex
}

// NewFileLibrary creates a library stored in dataDir
func NewFileLibrary(dataDir string) *FileLibrary {
	return &FileLibrary{dataDir: dataDir}
}

// List returns the library in insertion order
func (l *FileLibrary) List(ctx context.Context) ([]overlay.SavedSticker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Append adds a sticker to the end of the library
func (l *FileLibrary) Append(ctx context.Context, sticker overlay.SavedSticker) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stickers, err := l.load()
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	stickers = append(stickers, sticker)
	return writeJSON(l.dataDir, "stickers.json", stickers)
}

func (l *FileLibrary) load() ([]overlay.SavedSticker, error) {
	stickers := []overlay.SavedSticker{}
	if err := readJSON(l.dataDir, "stickers.json", &stickers); err != nil {
		return nil, err
	}
	if stickers == nil {
		stickers = []overlay.SavedSticker{}
	}
	return stickers, nil
}

// RedisLibrary keeps the library as one JSON array under a single key
type RedisLibrary struct {
	client *redis.Client
	key    string
}

// NewRedisLibrary creates a library stored under key (DefaultLibraryKey if empty)
func NewRedisLibrary(client *redis.Client, key string) *RedisLibrary {
	if key == "" {
		key = DefaultLibraryKey
	}
	return &RedisLibrary{client: client, key: key}
}

// List returns the library in insertion order
func (l *RedisLibrary) List(ctx context.Context) ([]overlay.SavedSticker, error) {
	return l.get(ctx, l.client)
}

// Append adds a sticker to the end of the library. The read-modify-write runs
// under WATCH so concurrent appends are not lost.
func (l *RedisLibrary) Append(ctx context.Context, sticker overlay.SavedSticker) error {
	txf := func(tx *redis.Tx) error {
		stickers, err := l.get(ctx, tx)
		if err != nil {
			return err
		}

		data, err := json.Marshal(append(stickers, sticker))
		if err != nil {
			return fmt.Errorf("failed to marshal library: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, l.key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		err := l.client.Watch(ctx, txf, l.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to append sticker: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to append sticker: too much contention on %s", l.key)
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (l *RedisLibrary) get(ctx context.Context, c getter) ([]overlay.SavedSticker, error) {
	stickers := []overlay.SavedSticker{}

	data, err := c.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return stickers, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &stickers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal library: %w", err)
	}
	return stickers, nil
}
