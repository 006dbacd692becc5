package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/config"
	"github.com/librarydesk/library-service/library/internal/handler"
	"github.com/librarydesk/library-service/library/internal/queue"
	"github.com/librarydesk/library-service/library/internal/repository"
	"github.com/librarydesk/library-service/library/internal/server"
	"github.com/librarydesk/library-service/library/internal/service"
	"github.com/librarydesk/library-service/library/migrations"
	"github.com/librarydesk/library-service/pkg/kafka"
	"github.com/librarydesk/library-service/pkg/logger"
	"github.com/librarydesk/library-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	defer log.Sync() //nolint:errcheck

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("location", zap.Error(err))
	}

	var (
		repo repository.Repository
		db   *sqlx.DB
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("in-memory storage, data is lost on restart")
		repo = repository.NewMemoryRepository(log)
	default:
		db, err = postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
		if err != nil {
			log.Fatal("db init", zap.Error(err))
		}
		repo, err = repository.NewRepository(db, log)
		if err != nil {
			log.Fatal("repo", zap.Error(err))
		}
	}

	opts := []service.Option{
		service.WithLocation(loc),
		service.WithRegisterer(prometheus.DefaultRegisterer),
	}
	var publisher *queue.HistoryPublisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		publisher = queue.NewHistoryPublisher(producer, kafka.HistoryTopic, log)
		opts = append(opts, service.WithPublisher(publisher))
	} else {
		log.Info("kafka is not configured, history stays in storage only")
	}
	svc := service.NewService(repo, log, opts...)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("storage", string(cfg.Storage)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error("producer close", zap.Error(err))
		}
	}
	if db != nil {
		db.Close()
	}
	log.Info("Graceful shutdown finished", zap.Int("undoDepth", svc.UndoDepth()))
}
