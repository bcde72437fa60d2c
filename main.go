/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command obsyncd is the Obsync server: it wires the Metadata Store, Chunk
// Object Store, Push Ingestor, Pull Service, Realtime Bus and Access Gate
// onto the /v1 HTTP surface and serves it until told to stop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dc0d/onexit"

	"github.com/obsync-sh/obsync/blobapi"
	"github.com/obsync-sh/obsync/blobstore"
	"github.com/obsync-sh/obsync/config"
	"github.com/obsync-sh/obsync/httpapi"
	"github.com/obsync-sh/obsync/ingest"
	"github.com/obsync-sh/obsync/obslog"
	"github.com/obsync-sh/obsync/pull"
	"github.com/obsync-sh/obsync/realtime"
	"github.com/obsync-sh/obsync/store"
)

func main() {
	cfg := config.Load()
	obslog.Init(obslog.Config{
		Level:      obslog.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})
	log := obslog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metadataStore, err := store.Open(ctx, string(cfg.DatabaseDriver), cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open metadata store")
	}
	onexit.Register(func() { _ = metadataStore.Close() })

	backend := buildBlobBackend(cfg)

	bus := realtime.NewBus(cfg.Reloadable.RealtimeBacklogCap)
	ingestSvc := ingest.New(metadataStore, bus)
	blobSvc := blobapi.New(metadataStore, backend)

	reloadable := config.NewStore(cfg.Reloadable)
	pullSvc := pull.New(metadataStore, reloadable)

	watchStop := make(chan struct{})
	defer close(watchStop)
	if path := os.Getenv("OBSYNC_RELOADABLE_CONFIG_FILE"); path != "" {
		go func() {
			if err := config.Watch(path, reloadable, watchStop); err != nil {
				log.Warn().Err(err).Msg("config watch exited")
			}
		}()
	}

	verifier := &passthroughVerifier{}
	server := httpapi.New(cfg.ListenAddr, metadataStore, ingestSvc, pullSvc, bus, blobSvc, verifier, reloadable)

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Fatal().Err(err).Msg("http server stopped unexpectedly")
		}
	}()
	log.Info().Str("addr", cfg.ListenAddr).Str("dbDriver", string(cfg.DatabaseDriver)).Str("blobBackend", string(cfg.BlobBackend)).Msg("obsyncd started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown timed out")
	}
}

func buildBlobBackend(cfg config.Config) blobstore.Backend {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		return blobstore.NewS3Backend(blobstore.S3Config{
			Bucket:         cfg.S3Bucket,
			Prefix:         cfg.S3Prefix,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
	default:
		return blobstore.NewFSBackend(cfg.BlobFSRoot)
	}
}
