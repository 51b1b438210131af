// Package bootstrap wires together the Catalog Store, Supervisor,
// optional history sink, and HTTP Control Plane into a runnable
// service, the way cmd/provisr/main.go's runSimpleServeCommand wires a
// provisr.Manager and its HTTP server together.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/openlist-service/internal/catalog"
	"github.com/loykin/openlist-service/internal/config"
	"github.com/loykin/openlist-service/internal/cronsched"
	"github.com/loykin/openlist-service/internal/history"
	"github.com/loykin/openlist-service/internal/logger"
	"github.com/loykin/openlist-service/internal/metrics"
	"github.com/loykin/openlist-service/internal/server"
	"github.com/loykin/openlist-service/internal/supervisor"
)

// Service bundles the running components so main can wait on a signal
// and then call Shutdown.
type Service struct {
	Settings   config.Settings
	Log        *slog.Logger
	Supervisor *supervisor.Supervisor
	HTTP       *http.Server
	// Done closes when POST /api/v1/shutdown has been handled, so main
	// can select on it alongside OS signals.
	Done      chan struct{}
	historyDB *history.DB
	cron      *cronsched.Scheduler
}

// Options carries bootstrap-time overrides, mainly for tests.
type Options struct {
	Console    bool
	BulkConfig string
}

// Run performs the full first-boot sequence: resolve settings, open the
// catalog, build the supervisor, optionally provision from a bulk TOML
// file, auto-start, and start listening. It returns right after
// launching the HTTP server's ListenAndServe in a background goroutine,
// without waiting for the listener to be bound; the caller is
// responsible for blocking until shutdown and then calling
// Service.Shutdown.
func Run(opts Options) (*Service, error) {
	catalogPath, err := catalog.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}

	apiKey, err := loadOrGenerateAPIKey(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("resolve api key: %w", err)
	}
	settings := config.Load(apiKey)

	log := logger.New(logger.Config{Console: opts.Console})

	store := catalog.NewStore(catalogPath, log)
	cat := store.Load()

	if opts.BulkConfig != "" && cat.Len() == 0 {
		procs, err := config.LoadBulkFile(opts.BulkConfig)
		if err != nil {
			return nil, fmt.Errorf("load bulk config: %w", err)
		}
		now := time.Now().Unix()
		for _, p := range procs {
			if p.ID == "" || cat.Has(p.ID) {
				p.ID = uuid.NewString()
			}
			p.CreatedAt, p.UpdatedAt = now, now
			cat.Put(p)
		}
		if err := store.Save(cat); err != nil {
			return nil, fmt.Errorf("persist provisioned catalog: %w", err)
		}
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", "error", err)
	}

	var rec supervisor.Recorder
	var historyDB *history.DB
	if settings.HistoryDB != "" {
		historyDB, err = history.Open(settings.HistoryDB)
		if err != nil {
			log.Warn("history db unavailable, continuing without audit trail", "error", err)
		} else {
			rec = historyDB
		}
	}

	supOpts := []supervisor.Option{supervisor.WithLogDir(catalogDir(catalogPath))}
	if rec != nil {
		supOpts = append(supOpts, supervisor.WithRecorder(rec))
	}
	sup := supervisor.New(cat, store, log, supOpts...)

	if settings.AutoStart {
		sup.AutoStart()
	}

	sched := cronsched.New(sup, log)
	sched.Sync(sup.List())
	sched.Start()

	done := make(chan struct{})
	go resyncSchedule(sched, sup, done)

	var closeOnce sync.Once
	srv := server.New(sup, settings.APIKey, func() {
		closeOnce.Do(func() { close(done) })
	})
	httpSrv := server.NewHTTPServer(settings.Addr(), srv)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped unexpectedly", "error", err)
		}
	}()

	return &Service{
		Settings:   settings,
		Log:        log,
		Supervisor: sup,
		HTTP:       httpSrv,
		Done:       done,
		historyDB:  historyDB,
		cron:       sched,
	}, nil
}

// resyncSchedule keeps cron entries in step with catalog edits made
// through the HTTP API (create/update/delete can add, change, or clear
// a Schedule after boot). It stops once done closes.
func resyncSchedule(sched *cronsched.Scheduler, sup *supervisor.Supervisor, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sched.Sync(sup.List())
		case <-done:
			return
		}
	}
}

// Shutdown stops the cron dispatcher, drains the HTTP server, stops
// every managed child, and closes the optional history db.
func (s *Service) Shutdown(ctx context.Context) {
	s.cron.Stop()
	_ = s.HTTP.Shutdown(ctx)
	s.Supervisor.Shutdown()
	if s.historyDB != nil {
		_ = s.historyDB.Close()
	}
}

func catalogDir(catalogPath string) string {
	return filepath.Dir(catalogPath)
}

// loadOrGenerateAPIKey returns PROCESS_MANAGER_API_KEY's generate-on-
// first-boot default: a random key written next to the catalog file
// and reused on subsequent boots, per spec §9's security note. The
// environment variable, if set, always takes precedence (config.Load
// applies it as an override on top of this fallback).
func loadOrGenerateAPIKey(catalogPath string) (string, error) {
	if v := os.Getenv("PROCESS_MANAGER_API_KEY"); v != "" {
		return v, nil
	}
	keyPath := filepath.Join(catalogDir(catalogPath), ".api_key")
	if b, err := os.ReadFile(keyPath); err == nil && len(b) > 0 {
		return string(b), nil
	}
	if err := os.MkdirAll(catalogDir(catalogPath), 0o750); err != nil {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	key := hex.EncodeToString(buf)
	if err := os.WriteFile(keyPath, []byte(key), 0o600); err != nil {
		return "", err
	}
	return key, nil
}
