// Command attestserver runs the passport-bound device attestation service.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dc4eu/vc-attest/internal/apiv1"
	"github.com/dc4eu/vc-attest/internal/attest"
	"github.com/dc4eu/vc-attest/internal/broker"
	"github.com/dc4eu/vc-attest/internal/httpserver"
	"github.com/dc4eu/vc-attest/internal/store"
	"github.com/dc4eu/vc-attest/internal/store/filestore"
	"github.com/dc4eu/vc-attest/internal/store/sqlstore"
	"github.com/dc4eu/vc-attest/pkg/configuration"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"
	"github.com/dc4eu/vc-attest/pkg/trace"
)

type service interface {
	Close(ctx context.Context) error
}

func main() {
	var wg sync.WaitGroup
	ctx := context.Background()

	services := make(map[string]service)

	cfg, err := configuration.New(ctx)
	if err != nil {
		panic(err)
	}

	log, err := logger.New("vc_attest", cfg.Common.Log.FolderPath, cfg.Common.Production)
	if err != nil {
		panic(err)
	}

	tracer, err := trace.New(ctx, cfg, log, "vc-attest", "attestserver")
	if err != nil {
		panic(err)
	}

	deviceStore, err := newDeviceStore(ctx, cfg, log)
	if err != nil {
		panic(err)
	}
	if closer, ok := deviceStore.(interface{ Stop() }); ok {
		defer closer.Stop()
	}

	attestVerifier := attest.New(deviceStore, tracer, cfg.Attest)

	brokerClient := broker.New(cfg.Broker, log.New("broker"), tracer)

	apiv1Client := apiv1.New(attestVerifier, deviceStore, brokerClient, tracer, log.New("apiv1"))

	httpService, err := httpserver.New(ctx, cfg, apiv1Client, tracer, log.New("httpserver"))
	if err != nil {
		panic(err)
	}
	services["httpService"] = httpService

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan

	mainLog := log.New("main")
	mainLog.Info("halting signal received")

	for name, svc := range services {
		if err := svc.Close(ctx); err != nil {
			mainLog.Trace("shutdown error", "service", name, "error", err)
		}
	}

	if err := tracer.Shutdown(ctx); err != nil {
		mainLog.Info("tracer shutdown error", "error", err)
	}

	wg.Wait()

	mainLog.Info("stopped")
}

// newDeviceStore selects the relational backend when POSTGRES_URL is set,
// the embedded file backend otherwise, and wraps either in a read-through
// identity cache per SPEC_FULL.md §4.3.
func newDeviceStore(ctx context.Context, cfg *model.Cfg, log *logger.Log) (store.Store, error) {
	var backing store.Store
	var err error

	if cfg.Store.PostgresURL != "" {
		backing, err = sqlstore.New(ctx, cfg.Store.PostgresURL, log.New("sqlstore"))
		if err != nil {
			return nil, err
		}
	} else {
		backing = filestore.New(cfg.Store.FilePath, log.New("filestore"))
	}

	ttl := time.Duration(cfg.Store.IdentityCacheTTLSeconds) * time.Second
	return store.NewCachingStore(backing, ttl), nil
}
