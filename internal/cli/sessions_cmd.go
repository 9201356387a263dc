// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/config"
	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/storage"
	"github.com/jeranaias/deskchat-tui/internal/util"
)

// sessionListing is the JSON shape for one local conversation.
type sessionListing struct {
	Index        int    `json:"index"`
	SessionID    string `json:"sessionId"`
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
	UpdatedAt    string `json:"updatedAt"`
}

// HandleSessions handles the "sessions" command.
func HandleSessions(args Args) error {
	switch args.Subcommand {
	case "", "list":
		return sessionsList(args)
	case "delete", "rm":
		return sessionsDelete(args)
	default:
		return &UsageError{Message: fmt.Sprintf("unknown sessions subcommand %q (use list or delete)", args.Subcommand)}
	}
}

// sessionsList lists conversations from the local store.
func sessionsList(args Args) error {
	sessions, err := loadLocalSessions(args)
	if err != nil {
		return err
	}

	if args.JSON {
		listings := make([]sessionListing, 0, len(sessions))
		for i, sess := range sessions {
			listings = append(listings, sessionListing{
				Index:        i + 1,
				SessionID:    sess.ID,
				Title:        sess.Title,
				MessageCount: sess.MessageCount(),
				UpdatedAt:    sess.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		return NewJSONResponse("sessions", listings).Print()
	}

	if len(sessions) == 0 {
		fmt.Println("No conversations saved yet.")
		return nil
	}

	fmt.Printf("%d conversation(s):\n", len(sessions))
	for i, sess := range sessions {
		fmt.Printf("  %d. %s (%d messages, updated %s)\n",
			i+1, sess.Title, sess.MessageCount(), sess.UpdatedAt.Format("2006-01-02 15:04"))
		if last := sess.LastMessage(); last != nil && !args.Quiet {
			fmt.Printf("     %s\n", util.SingleLine(last.Preview(70)))
		}
	}
	return nil
}

// sessionsDelete removes conversation n from the local store and, best
// effort, from the backend.
func sessionsDelete(args Args) error {
	parser := NewArgParser(args.Raw)

	index := parser.Positional(1)
	if index == "" {
		return &UsageError{Message: "usage: deskchat sessions delete <n>"}
	}
	n, err := strconv.Atoi(index)
	if err != nil || n < 1 {
		return &UsageError{Message: fmt.Sprintf("invalid conversation number %q", index)}
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := store.Load()
	if n > len(sessions) {
		return &NotFoundError{Resource: "conversation", ID: index}
	}
	target := sessions[n-1]

	remaining := make([]*model.Session, 0, len(sessions)-1)
	remaining = append(remaining, sessions[:n-1]...)
	remaining = append(remaining, sessions[n:]...)
	if err := store.Save(remaining); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	// The backend copy is advisory; a failure leaves it to expire there.
	if cfg.Server.BaseURL != "" && cfg.User.ID != "" {
		client := api.NewClient(cfg.Server.BaseURL, cfg.User.ID)
		if cfg.Server.AuthToken != "" {
			client = client.WithAuthToken(cfg.Server.AuthToken)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Connection.RequestTimeoutSecs)*time.Second)
		defer cancel()
		if err := client.DeleteSession(ctx, target.ID); err != nil && !args.Quiet {
			fmt.Printf("Warning: backend delete failed: %v\n", err)
		}
	}

	if args.JSON {
		return NewJSONResponse("sessions delete", map[string]string{
			"sessionId": target.ID,
			"title":     target.Title,
		}).Print()
	}
	if !args.Quiet {
		fmt.Printf("Deleted %q\n", target.Title)
	}
	return nil
}

// loadLocalSessions opens the store read-only-ish and loads the
// persisted session collection.
func loadLocalSessions(args Args) ([]*model.Session, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Load(), nil
}

// openStore opens the session store at the configured path.
func openStore(cfg *config.Config) (*storage.Store, error) {
	path := cfg.Storage.DatabasePath
	if path == "" {
		var err error
		path, err = storage.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	store, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

// loadConfig loads the configuration, honoring --config.
func loadConfig(args Args) (*config.Config, error) {
	if args.Config != "" {
		return config.LoadFromPath(args.Config)
	}
	return config.Load()
}
