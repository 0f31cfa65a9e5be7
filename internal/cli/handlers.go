// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// handlers.go - Command handlers wiring config, storage, worker and TUI.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/docenty/hunmin/internal/agent"
	"github.com/docenty/hunmin/internal/auth"
	"github.com/docenty/hunmin/internal/channel"
	"github.com/docenty/hunmin/internal/config"
	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/export"
	"github.com/docenty/hunmin/internal/objstore"
	"github.com/docenty/hunmin/internal/search"
	"github.com/docenty/hunmin/internal/security"
	"github.com/docenty/hunmin/internal/storage"
	uiagent "github.com/docenty/hunmin/internal/ui/agent"
	"github.com/docenty/hunmin/internal/ui/styles"
	"github.com/docenty/hunmin/internal/watch"
	"github.com/docenty/hunmin/internal/worker"
)

// =============================================================================
// SHARED WIRING
// =============================================================================

func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

func channelConfig(cfg *config.Config) channel.Config {
	return channel.Config{
		URL:                  cfg.Channel.WorkerURL,
		ReconnectDelay:       time.Duration(cfg.Channel.ReconnectDelayMS) * time.Millisecond,
		MaxReconnectAttempts: cfg.Channel.MaxReconnectAttempts,
	}
}

// restBase derives the worker's HTTP base URL from its websocket endpoint.
func restBase(wsURL string) string {
	base := strings.TrimSuffix(wsURL, "/ws")
	switch {
	case strings.HasPrefix(base, "wss://"):
		return "https://" + strings.TrimPrefix(base, "wss://")
	case strings.HasPrefix(base, "ws://"):
		return "http://" + strings.TrimPrefix(base, "ws://")
	}
	return base
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	return storage.Open(cfg.Storage.DBPath)
}

func newAuthService(cfg *config.Config, store *storage.Store) *auth.Service {
	return auth.NewService(store, auth.Config{
		BcryptCost:       cfg.Auth.BcryptCost,
		TOTPIssuer:       cfg.Auth.TOTPIssuer,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LockoutDuration:  time.Duration(cfg.Auth.LockoutMinutes) * time.Minute,
	})
}

func newSearchService(cfg *config.Config, store *storage.Store) *search.Service {
	var meili *search.Meili
	if cfg.Search.MeiliHost != "" {
		meili = search.NewMeili(cfg.Search.MeiliHost, cfg.Search.MeiliKey, cfg.Search.IndexName)
	}
	return search.NewService(meili, search.NewLocal(store))
}

// =============================================================================
// TUI
// =============================================================================

// HandleTUI starts the interactive document panel, optionally bound to a file
// on disk that is watched for external edits.
func HandleTUI(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	buf := document.NewBuffer()
	if cfg.Document.DefaultSecurityLevel != "" {
		if lvl, err := security.ParseLevel(cfg.Document.DefaultSecurityLevel); err == nil {
			buf.SetSecurityLevel(lvl)
		}
	}
	if args.Level != "" {
		lvl, err := security.ParseLevel(args.Level)
		if err != nil {
			return err
		}
		buf.SetSecurityLevel(lvl)
	}
	if args.File != "" {
		data, err := os.ReadFile(args.File)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		buf.SetContent(string(data))
		buf.SetTitle(filepath.Base(args.File))
		buf.MarkSaved(time.Now())
	}

	ch := channel.New(channelConfig(cfg), channel.NewWebSocketDialer())
	defer ch.Disconnect()

	model := uiagent.New(agent.New(ch, buf), ch, styles.NewTheme())
	prog := tea.NewProgram(model, tea.WithAltScreen())

	if args.File != "" {
		debounce := time.Duration(cfg.Document.WatchDebounceMS) * time.Millisecond
		if debounce <= 0 {
			debounce = 500 * time.Millisecond
		}
		watcher, err := watch.New(args.File, debounce, func(content string) {
			prog.Send(uiagent.FileChangedMsg{Content: content})
		})
		if err != nil {
			return fmt.Errorf("watch document: %w", err)
		}
		if err := watcher.Watch(); err != nil {
			log.Printf("cli: file watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	_, err = prog.Run()
	return err
}

// =============================================================================
// WORKER
// =============================================================================

// HandleWorker runs the worker service, or one of its account subcommands.
func HandleWorker(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "run":
		return runWorker(cfg, args)
	case "adduser":
		return workerAddUser(cfg, args)
	case "totp":
		return workerEnrollTOTP(cfg, args)
	}
	return fmt.Errorf("unknown worker subcommand: %s", args.Subcommand)
}

func runWorker(cfg *config.Config, args Args) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.SeedKnowledge(ctx); err != nil {
		return fmt.Errorf("seed knowledge library: %w", err)
	}
	newSearchService(cfg, store).Reindex(ctx, store)

	var authSvc *auth.Service
	var sessions *worker.Sessions
	if cfg.Auth.Enabled {
		authSvc = newAuthService(cfg, store)
		if cfg.Worker.RedisAddr == "" {
			return errors.New("auth is enabled but worker.redis_addr is not set")
		}
		sessions, err = worker.NewSessions(cfg.Worker.RedisAddr, cfg.Worker.RedisPassword)
		if err != nil {
			return fmt.Errorf("connect session store: %w", err)
		}
		defer sessions.Close()
	}

	if !args.Quiet {
		log.Printf("worker: listening on %s", cfg.Worker.ListenAddr)
	}
	return worker.New(cfg.Worker, authSvc, sessions).Run(ctx)
}

func workerAddUser(cfg *config.Config, args Args) error {
	if len(args.Raw) == 0 {
		return errors.New("usage: hunmin worker adduser USERNAME")
	}
	username := args.Raw[0]

	password, err := auth.ReadPassword("비밀번호: ")
	if err != nil {
		return err
	}
	confirm, err := auth.ReadPassword("비밀번호 확인: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := newAuthService(cfg, store).Register(context.Background(), username, password); err != nil {
		return err
	}
	fmt.Printf("계정이 생성되었습니다: %s\n", username)
	return nil
}

func workerEnrollTOTP(cfg *config.Config, args Args) error {
	if len(args.Raw) == 0 {
		return errors.New("usage: hunmin worker totp USERNAME")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	url, err := newAuthService(cfg, store).EnrollTOTP(context.Background(), args.Raw[0])
	if err != nil {
		return err
	}
	fmt.Println("인증 앱에 아래 URL을 등록하세요:")
	fmt.Println(url)
	return nil
}

// =============================================================================
// STATUS
// =============================================================================

// HandleStatus reports configuration and worker reachability.
func HandleStatus(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fmt.Printf("hunmin %s\n\n", Version)
	if path, err := config.PathTOML(); err == nil {
		fmt.Printf("  config:      %s\n", path)
	}
	fmt.Printf("  worker url:  %s\n", cfg.Channel.WorkerURL)

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(restBase(cfg.Channel.WorkerURL) + "/health")
	if err != nil {
		fmt.Printf("  worker:      연결 실패 (%v)\n", err)
		return nil
	}
	defer resp.Body.Close()

	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Printf("  worker:      응답 해석 실패 (%v)\n", err)
		return nil
	}
	fmt.Printf("  worker:      %s (%s)\n", health.Status, health.Timestamp)
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig shows or modifies the configuration file.
func HandleConfig(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "show":
		fmt.Println(cfg.String())
		return nil

	case "path":
		path, err := config.PathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return errors.New("usage: hunmin config set KEY VALUE")
		}
		if err := setConfigValue(cfg, args.ConfigKey, args.ConfigVal); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args.ConfigKey, args.ConfigVal)
		return nil
	}
	return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "channel.worker_url":
		cfg.Channel.WorkerURL = value
	case "channel.reconnect_delay_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, value)
		}
		cfg.Channel.ReconnectDelayMS = n
	case "channel.max_reconnect_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, value)
		}
		cfg.Channel.MaxReconnectAttempts = n
	case "worker.listen_addr":
		cfg.Worker.ListenAddr = value
	case "worker.redis_addr":
		cfg.Worker.RedisAddr = value
	case "document.default_security_level":
		lvl, err := security.ParseLevel(value)
		if err != nil {
			return err
		}
		cfg.Document.DefaultSecurityLevel = lvl.Marking()
	case "search.meili_host":
		cfg.Search.MeiliHost = value
	case "ui.theme":
		cfg.UI.Theme = value
	default:
		return fmt.Errorf("unknown config key: %s (see hunmin help)", key)
	}
	return nil
}

// =============================================================================
// DOCS
// =============================================================================

// HandleDocs lists, shows or removes stored documents.
func HandleDocs(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	switch args.Subcommand {
	case "", "list", "ls":
		metas, err := store.ListDocuments(ctx)
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("저장된 문서가 없습니다.")
			return nil
		}
		for _, m := range metas {
			fmt.Printf("%-36s  %-8s  %-19s  %s\n",
				m.ID, m.SecurityLevel.Marking(), m.UpdatedAt.Format("2006-01-02 15:04:05"), m.Title)
		}
		return nil

	case "show":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin docs show DOC_ID")
		}
		buf, err := store.LoadDocument(ctx, args.Raw[0])
		if err != nil {
			return err
		}
		fmt.Println(security.Banner(buf.SecurityLevel, 72))
		fmt.Printf("# %s\n\n%s\n", buf.Title, buf.Content)
		return nil

	case "export":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin docs export DOC_ID [FORMAT]")
		}
		format := ""
		if len(args.Raw) > 1 {
			format = args.Raw[1]
		}
		return exportDocument(ctx, store, args.Raw[0], format)

	case "rm", "delete":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin docs rm DOC_ID")
		}
		if err := store.DeleteDocument(ctx, args.Raw[0]); err != nil {
			return err
		}
		fmt.Println("삭제되었습니다.")
		return nil
	}
	return fmt.Errorf("unknown docs subcommand: %s", args.Subcommand)
}

func exportDocument(ctx context.Context, store *storage.Store, id, format string) error {
	buf, err := store.LoadDocument(ctx, id)
	if err != nil {
		return err
	}
	history, err := store.ValidationHistory(ctx, id, 10)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(&export.Document{Buffer: buf, History: history}, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// =============================================================================
// KNOWLEDGE
// =============================================================================

// HandleKnowledge searches the knowledge library.
func HandleKnowledge(args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return errors.New("usage: hunmin knowledge QUERY")
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedKnowledge(ctx); err != nil {
		return err
	}

	resp := newSearchService(cfg, store).Search(ctx, search.Query{Text: args.Query, Limit: 10})
	if resp.Total == 0 {
		fmt.Printf("검색 결과가 없습니다: %q\n", args.Query)
		return nil
	}

	fmt.Printf("검색 결과 %d건: %q\n\n", resp.Total, args.Query)
	for i, r := range resp.Results {
		fmt.Printf("%d. [%s] %s (%s)\n", i+1, r.SecurityLevel, r.Title, r.Category)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
	}
	return nil
}

// =============================================================================
// ATTACH
// =============================================================================

// HandleAttach manages document attachments in the object store.
func HandleAttach(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := objstore.New(ctx, objstore.Config{
		Endpoint:  cfg.ObjStore.Endpoint,
		AccessKey: cfg.ObjStore.AccessKey,
		SecretKey: cfg.ObjStore.SecretKey,
		Bucket:    cfg.ObjStore.Bucket,
		UseSSL:    cfg.ObjStore.UseSSL,
	})
	if err != nil {
		if errors.Is(err, objstore.ErrNotConfigured) {
			return errors.New("attachments are not configured (set the [objstore] section)")
		}
		return err
	}

	switch args.Subcommand {
	case "put":
		if len(args.Raw) < 2 {
			return errors.New("usage: hunmin attach put DOC_ID FILE")
		}
		return attachPut(ctx, client, args.Raw[0], args.Raw[1])

	case "list", "ls":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin attach list DOC_ID")
		}
		atts, err := client.List(ctx, args.Raw[0])
		if err != nil {
			return err
		}
		if len(atts) == 0 {
			fmt.Println("첨부 파일이 없습니다.")
			return nil
		}
		for _, a := range atts {
			fmt.Printf("%-8d  %-19s  %s\n", a.Size, a.UploadedAt.Format("2006-01-02 15:04:05"), a.Key)
		}
		return nil

	case "get":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin attach get KEY [OUT]")
		}
		out := filepath.Base(args.Raw[0])
		if len(args.Raw) > 1 {
			out = args.Raw[1]
		}
		return attachGet(ctx, client, args.Raw[0], out)

	case "url":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin attach url KEY")
		}
		url, err := client.PresignedURL(ctx, args.Raw[0])
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil

	case "rm", "delete":
		if len(args.Raw) == 0 {
			return errors.New("usage: hunmin attach rm KEY")
		}
		if err := client.Delete(ctx, args.Raw[0]); err != nil {
			return err
		}
		fmt.Println("삭제되었습니다.")
		return nil
	}
	return fmt.Errorf("unknown attach subcommand: %s", args.Subcommand)
}

func attachPut(ctx context.Context, client *objstore.Client, documentID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	key, err := client.Upload(ctx, documentID, filepath.Base(path), "application/octet-stream", f, info.Size())
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

func attachGet(ctx context.Context, client *objstore.Client, key, out string) error {
	rc, err := client.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
