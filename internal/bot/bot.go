// Package bot implements the Matrix side of sayangku: it receives the
// partner's chat messages, collects stickers and photos from reactions and
// answers !sayang commands.
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/liminalpurple/sayangku/internal/chat"
	"github.com/liminalpurple/sayangku/internal/config"
	"github.com/liminalpurple/sayangku/internal/gallery"
	"github.com/liminalpurple/sayangku/internal/matrix"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// simpleStore implements a minimal mautrix.SyncStore that only tracks next_batch
type simpleStore struct {
	mu        sync.RWMutex
	nextBatch string
}

func (s *simpleStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return nil
}
func (s *simpleStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return "", nil
}
func (s *simpleStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBatch = nextBatchToken
	return nil
}
func (s *simpleStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextBatch, nil
}

// Assistant answers language questions for commands
type Assistant interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Define(ctx context.Context, word, lang string) (string, error)
	Examples(ctx context.Context, word, sourceLang, targetLang string) (string, error)
}

// Bot syncs the couple's Matrix account
type Bot struct {
	client    *matrix.Client
	gallery   *gallery.Service
	chat      *chat.Service
	assistant Assistant
	dataDir   string
	roomID    id.RoomID
	syncer    *mautrix.DefaultSyncer
	ctx       context.Context
	cancel    context.CancelFunc
	config    *config.Config
	nextBatch string
}

// NewBot creates a new bot instance. assistant may be nil, which disables
// the language commands.
func NewBot(matrixClient *matrix.Client, gallerySvc *gallery.Service, chatSvc *chat.Service, assistant Assistant, cfg *config.Config) *Bot {
	ctx, cancel := context.WithCancel(context.Background())

	matrixClient.Client.Store = &simpleStore{nextBatch: cfg.Matrix.NextBatch}

	bot := &Bot{
		client:    matrixClient,
		gallery:   gallerySvc,
		chat:      chatSvc,
		assistant: assistant,
		dataDir:   cfg.Storage.DataDir,
		roomID:    id.RoomID(cfg.Matrix.RoomID),
		syncer:    matrixClient.Syncer.(*mautrix.DefaultSyncer),
		ctx:       ctx,
		cancel:    cancel,
		config:    cfg,
		nextBatch: cfg.Matrix.NextBatch,
	}

	bot.syncer.OnEventType(event.EventReaction, bot.handleReaction)
	bot.syncer.OnEventType(event.EventMessage, bot.handleMessage)

	return bot
}

// Run starts the bot's sync loop and blocks until Stop or a sync error
func (b *Bot) Run() error {
	log.Println("Starting bot sync loop...")

	if b.nextBatch != "" {
		log.Printf("Resuming from next_batch: %s", truncate(b.nextBatch, 20))
	} else {
		log.Println("No previous sync token, starting from current state")
	}

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	firstSyncCheck := time.NewTicker(10 * time.Second)
	defer firstSyncCheck.Stop()

	syncErr := make(chan error, 1)
	go func() {
		if err := b.client.SyncWithContext(b.ctx); err != nil && err != context.Canceled {
			syncErr <- err
		}
		log.Println("Sync goroutine exited")
	}()

	savedFirst := false
	for {
		select {
		case <-firstSyncCheck.C:
			if savedFirst {
				continue
			}
			nb, err := b.client.Client.Store.LoadNextBatch(context.Background(), b.client.UserID)
			if err != nil || nb == "" || nb == b.nextBatch {
				continue
			}
			log.Printf("First sync completed, next_batch: %s", truncate(nb, 20))
			if err := b.saveNextBatch(); err != nil {
				log.Printf("Warning: failed to save next_batch after first sync: %v", err)
				continue
			}
			savedFirst = true
			firstSyncCheck.Stop()

		case <-ticker.C:
			if err := b.saveNextBatch(); err != nil {
				log.Printf("Warning: failed to save next_batch: %v", err)
			}

		case err := <-syncErr:
			return fmt.Errorf("sync error: %w", err)

		case <-b.ctx.Done():
			log.Println("Bot sync loop stopped")
			return nil
		}
	}
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() {
	log.Println("Stopping bot...")
	b.cancel()
	b.client.StopSync()

	if err := b.saveNextBatch(); err != nil {
		log.Printf("Warning: failed to save next_batch on shutdown: %v", err)
	}
}

// saveNextBatch persists the current next_batch token to config
func (b *Bot) saveNextBatch() error {
	if nb, err := b.client.Client.Store.LoadNextBatch(context.Background(), b.client.UserID); err == nil {
		b.nextBatch = nb
	}
	b.config.Matrix.NextBatch = b.nextBatch
	return config.Save(b.config)
}

// handleReaction is called for every m.reaction event
func (b *Bot) handleReaction(ctx context.Context, evt *event.Event) {
	if evt.Sender != b.client.UserID {
		return
	}

	if err := b.processReaction(ctx, evt); err != nil {
		log.Printf("Error processing reaction: %v", err)
	}
}

// handleMessage routes text messages: my own !sayang commands, and the
// partner's messages in the couple's room
func (b *Bot) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == b.client.UserID {
		b.handleCommand(ctx, evt)
		return
	}

	if b.roomID == "" || evt.RoomID != b.roomID {
		return
	}
	if err := b.receiveChat(ctx, evt); err != nil {
		log.Printf("Error receiving message: %v", err)
	}
}

// receiveChat stores a partner message in the chat history
func (b *Bot) receiveChat(ctx context.Context, evt *event.Event) error {
	if b.chat == nil {
		return nil
	}

	msg, ok := matrix.MessageFromEvent(evt, displayName(evt.Sender))
	if !ok {
		return nil
	}
	if content := evt.Content.AsMessage(); content.RelatesTo != nil && content.RelatesTo.Type == event.RelReplace {
		return nil
	}

	stored, added, err := b.chat.Receive(ctx, msg)
	if err != nil {
		return err
	}
	if added {
		log.Printf("Received message %d from %s", stored.ID, stored.Sender)
	}
	return nil
}

// displayName is the chat sender name for a Matrix user
func displayName(userID id.UserID) string {
	return userID.Localpart()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
