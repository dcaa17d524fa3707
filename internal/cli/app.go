// Package cli provides command-line interface commands for sayangku.
package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/liminalpurple/sayangku/internal/chat"
	"github.com/liminalpurple/sayangku/internal/config"
	"github.com/liminalpurple/sayangku/internal/gallery"
	"github.com/liminalpurple/sayangku/internal/llm"
	"github.com/liminalpurple/sayangku/internal/matrix"
	"github.com/liminalpurple/sayangku/internal/storage"
	"github.com/redis/go-redis/v9"
	"maunium.net/go/mautrix/id"
)

// assistant is what the language commands need from the LLM client
type assistant interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Define(ctx context.Context, word, lang string) (string, error)
	Examples(ctx context.Context, word, sourceLang, targetLang string) (string, error)
}

// app bundles the services built from the configuration
type app struct {
	cfg       *config.Config
	matrix    *matrix.Client // nil when not logged in
	assistant assistant      // nil without an Anthropic API key
	gallery   *gallery.Service
	chat      *chat.Service
	redis     *redis.Client
}

// appOptions selects which remote services newApp connects to
type appOptions struct {
	matrix   bool // Connect to Matrix when an access token is configured
	requireM bool // Fail when Matrix is not configured
}

// newApp loads the configuration and builds the services
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	if opts.requireM && cfg.Matrix.AccessToken == "" {
		return nil, fmt.Errorf("no access token configured - run 'sayangku login' first")
	}
	if opts.matrix && cfg.Matrix.AccessToken != "" {
		a.matrix, err = matrix.NewClient(cfg.Matrix.Homeserver, cfg.Matrix.UserID, cfg.Matrix.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create Matrix client: %w", err)
		}
		if err := a.matrix.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to Matrix: %w", err)
		}
		log.Printf("Connected as %s", a.matrix.UserID)

		if cfg.Matrix.RoomID != "" {
			if err := a.matrix.EnsureJoined(ctx, id.RoomID(cfg.Matrix.RoomID)); err != nil {
				return nil, err
			}
		}
	}

	if cfg.Anthropic.APIKey != "" {
		client := llm.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		log.Printf("Using model: %s (max tokens: %d)", client.Model(), client.MaxTokens())
		a.assistant = client
	}

	library, err := a.library(ctx)
	if err != nil {
		return nil, err
	}

	a.gallery, err = gallery.NewService(cfg.Storage.DataDir, library, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}

	settings, err := chatSettings(cfg)
	if err != nil {
		return nil, err
	}

	var transport chat.Transport
	if a.matrix != nil && cfg.Matrix.RoomID != "" {
		transport = matrix.NewChatTransport(a.matrix, cfg.Matrix.RoomID)
	}
	var translator chat.Translator
	if a.assistant != nil {
		translator = a.assistant
	}

	a.chat, err = chat.NewService(cfg.Storage.DataDir, transport, translator, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	return a, nil
}

// library opens the sticker library on the configured backend
func (a *app) library(ctx context.Context) (storage.LibraryStore, error) {
	if a.cfg.Storage.Backend != "redis" {
		return storage.NewFileLibrary(a.cfg.Storage.DataDir), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		_ = a.redis.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	log.Printf("Sticker library in Redis at %s (key %s)", a.cfg.Redis.Addr, a.cfg.Redis.Key)
	return storage.NewRedisLibrary(a.redis, a.cfg.Redis.Key), nil
}

// Close releases connections held by the app
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// chatSettings derives the chat settings from the configuration
func chatSettings(cfg *config.Config) (chat.Settings, error) {
	mine, err := storage.ParseLanguage(cfg.Chat.Language)
	if err != nil {
		return chat.Settings{}, fmt.Errorf("chat.language: %w", err)
	}
	partner, err := storage.ParseLanguage(cfg.Chat.TranslateTo)
	if err != nil {
		return chat.Settings{}, fmt.Errorf("chat.translate_to: %w", err)
	}

	return chat.Settings{
		Me:               cfg.Chat.DisplayName,
		MyBubbleColor:    cfg.Chat.MyBubbleColor,
		OtherBubbleColor: cfg.Chat.OtherBubbleColor,
		Language:         mine,
		PartnerLanguage:  partner,
		AutoTranslate:    cfg.Chat.AutoTranslate,
	}, nil
}
