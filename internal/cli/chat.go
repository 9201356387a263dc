// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deskchat-tui/internal/api"
	"github.com/jeranaias/deskchat-tui/internal/config"
	"github.com/jeranaias/deskchat-tui/internal/model"
	"github.com/jeranaias/deskchat-tui/internal/state"
	"github.com/jeranaias/deskchat-tui/internal/storage"
	"github.com/jeranaias/deskchat-tui/internal/stream"
	"github.com/jeranaias/deskchat-tui/internal/transport"
	"github.com/jeranaias/deskchat-tui/internal/ui/chat"
	"github.com/jeranaias/deskchat-tui/internal/ui/styles"
)

// programHandle hands the running Bubble Tea program to transport
// callbacks that are registered before the program exists. Sends
// before set() are dropped; the first ConnectionStatusMsg after the
// program starts re-establishes the picture.
type programHandle struct {
	mu sync.Mutex
	p  *tea.Program
}

func (h *programHandle) set(p *tea.Program) {
	h.mu.Lock()
	h.p = p
	h.mu.Unlock()
}

func (h *programHandle) send(msg tea.Msg) {
	h.mu.Lock()
	p := h.p
	h.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// HandleChat starts the chat TUI: wires config, storage, state,
// streaming, and transport together and runs the Bubble Tea program.
func HandleChat(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The alternate screen owns the terminal; stdlib log output from
	// the transport and watcher goes to a file instead.
	if logFile, err := tea.LogToFile(logPath(), "deskchat"); err == nil {
		defer logFile.Close()
	}

	// Local persistence. A broken store degrades to an in-memory
	// session list rather than blocking the chat.
	dbPath := cfg.Storage.DatabasePath
	if dbPath == "" {
		dbPath, err = storage.DefaultPath()
		if err != nil {
			return err
		}
	}
	var persister state.Persister
	initial := state.Initial()
	store, err := storage.Open(dbPath)
	if err != nil {
		log.Printf("cli: session store unavailable, running without persistence: %v", err)
	} else {
		defer store.Close()
		persister = store
		if sessions := store.Load(); len(sessions) > 0 {
			initial.Sessions = sessions
			initial.ActiveSessionID = sessions[0].ID
		}
	}

	dispatcher := state.NewDispatcher(initial, persister)

	assembler := stream.NewAssembler().
		WithConfirmationTimeout(time.Duration(cfg.UI.ConfirmationTimeoutMins) * time.Minute)

	apiClient := api.NewClient(cfg.Server.BaseURL, cfg.User.ID).
		WithTimeout(time.Duration(cfg.Connection.RequestTimeoutSecs) * time.Second).
		WithMaxRetries(cfg.Connection.MaxRetries)
	if cfg.Server.AuthToken != "" {
		apiClient = apiClient.WithAuthToken(cfg.Server.AuthToken)
	}

	handle := &programHandle{}
	tclient := transport.NewClient(transport.Options{
		URL:         cfg.Server.WebSocketURL,
		UserID:      cfg.User.ID,
		Dialer:      transport.WebSocketDialer(),
		BaseDelay:   time.Duration(cfg.Connection.ReconnectBaseDelaySecs) * time.Second,
		MaxAttempts: cfg.Connection.MaxReconnectAttempts,
		OnChunk: func(chunk model.Chunk) {
			handle.send(chat.ChunkMsg{Chunk: chunk})
		},
		OnStatus: func(status model.ConnectionStatus) {
			handle.send(chat.ConnectionStatusMsg{Status: status})
		},
	})
	defer tclient.Close()

	m := chat.New(chat.Deps{
		Dispatcher: dispatcher,
		Assembler:  assembler,
		Transport:  tclient,
		API:        apiClient,
		Config:     cfg,
		Theme:      styles.NewTheme(cfg.UI.Theme),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	handle.set(p)

	if watcher := startConfigWatcher(args, handle); watcher != nil {
		defer watcher.Close()
	}

	if err := tclient.Connect(); err != nil {
		log.Printf("cli: initial connect failed: %v", err)
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}

// startConfigWatcher begins live-reloading the config file. Reload is
// best effort; a missing or unwatchable file just disables it.
func startConfigWatcher(args Args, handle *programHandle) *config.Watcher {
	path := args.Config
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
		handle.send(chat.ConfigReloadedMsg{Config: cfg})
	})
	if err != nil {
		log.Printf("cli: config watcher unavailable: %v", err)
		return nil
	}
	if err := watcher.Watch(); err != nil {
		log.Printf("cli: config watcher failed to start: %v", err)
		watcher.Close()
		return nil
	}
	return watcher
}

// logPath places the debug log next to the config.
func logPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return "deskchat.log"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "deskchat.log"
	}
	return filepath.Join(dir, "deskchat.log")
}
