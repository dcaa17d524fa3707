package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liminalpurple/sayangku/internal/bot"
	"github.com/liminalpurple/sayangku/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var addr string
	var noBot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the web app",
		Long: `Serve the gallery, sticker editor, chat composer and language helpers
over HTTP for the web front end.

When logged in to Matrix the bot runs alongside the server so sent messages
reach your partner and theirs arrive in the history. Use --no-bot to serve
local data only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, noBot)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
	cmd.Flags().BoolVar(&noBot, "no-bot", false, "do not connect to Matrix")
	return cmd
}

func runServe(addr string, noBot bool) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{matrix: !noBot})
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	api := server.New(a.gallery, a.chat, nil, a.assistant)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(a.cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sayangBot *bot.Bot
	botErr := make(chan error, 1)
	if a.matrix != nil {
		sayangBot = bot.NewBot(a.matrix, a.gallery, a.chat, a.assistant, a.cfg)
		go func() {
			botErr <- sayangBot.Run()
		}()
	} else {
		log.Println("Matrix not configured, serving local data only")
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-srvErr:
		runErr = fmt.Errorf("server error: %w", err)
	case err := <-botErr:
		if err != nil {
			runErr = fmt.Errorf("bot error: %w", err)
		}
		sayangBot = nil
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if sayangBot != nil {
		sayangBot.Stop()
		if err := <-botErr; err != nil {
			log.Printf("Bot shutdown error: %v", err)
		}
	}

	return runErr
}
