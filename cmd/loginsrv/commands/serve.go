package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loginsrv/internal/account"
	"loginsrv/internal/account/badgerstore"
	"loginsrv/internal/account/mysqlstore"
	"loginsrv/internal/clock"
	"loginsrv/internal/config"
	"loginsrv/internal/dnsbl"
	"loginsrv/internal/gm"
	"loginsrv/internal/ipban"
	"loginsrv/internal/ipban/badgerban"
	"loginsrv/internal/logging"
	"loginsrv/internal/metrics"
	"loginsrv/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the login server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(confPath, lanConfPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	log := logging.Log

	loginLog := logging.NewLoginLog(loginLogPath(cfg))

	store, closeStore, err := openAccountStore(cfg)
	if err != nil {
		return fmt.Errorf("open account store: %w", err)
	}
	defer closeStore()

	banStore, closeBan, err := openIPBanStore(cfg)
	if err != nil {
		return fmt.Errorf("open ip ban store: %w", err)
	}
	defer closeBan()

	var checker dnsbl.Checker
	if cfg.UseDNSBL {
		checker = dnsbl.New(cfg.DNSBLServers)
	}

	gmTable := gm.NewFileTable(cfg.GMTableFile)
	if err := gmTable.Reload(); err != nil {
		log.Warn("initial gm table load failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	mc := metrics.NewCollector(reg)

	srv := server.New(cfg, store, banStore, checker, gmTable, clock.Real{}, log, loginLog, mc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.BindIP, cfg.LoginPort)
	g.Go(func() error {
		return srv.Run(gCtx, addr)
	})

	if cfg.MetricsBind != "" {
		metricsSrv := newMetricsServer(cfg.MetricsBind, reg)
		g.Go(func() error {
			return listenAndServe(metricsSrv, cfg.MetricsBind)
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	log.Info("loginsrv starting", zap.String("addr", addr))
	if err := g.Wait(); err != nil {
		log.Error("loginsrv exited with error", zap.Error(err))
		return err
	}
	log.Info("loginsrv stopped")
	return nil
}

func loginLogPath(cfg config.Config) string {
	if !cfg.LogLogin {
		return ""
	}
	return "login.log"
}

// openAccountStore selects the account.Store backend named by
// cfg.AccountDBDriver: "mysql" for mysqlstore, anything else (including
// the default "file") for the embedded badger-backed store.
func openAccountStore(cfg config.Config) (account.Store, func(), error) {
	switch cfg.AccountDBDriver {
	case "mysql":
		st, err := mysqlstore.Open(mysqlstore.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		path := cfg.FileStorePath
		if path == "" {
			path = "accounts.db"
		}
		st, err := badgerstore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	}
}

// openIPBanStore always uses the badger-backed variant so bans survive a
// restart; there is no plain-memory option exposed at the CLI layer since
// a login server that forgets its bans on every deploy defeats the point
// of dynamic banning.
func openIPBanStore(cfg config.Config) (ipban.Store, func(), error) {
	path := cfg.FileStorePath
	if path == "" {
		path = "accounts.db"
	}
	st, err := badgerban.Open(path+".ipban", cfg.DynamicPassFailureBanInterval, cfg.DynamicPassFailureBanLimit, cfg.DynamicPassFailureBanDuration)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listenAndServe(srv *http.Server, addr string) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}
