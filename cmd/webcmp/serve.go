package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/pthm/webcmp"
	"github.com/pthm/webcmp/lib/config"
	"github.com/pthm/webcmp/lib/manifest"
	"github.com/pthm/webcmp/lib/telemetry"
)

const shutdownTimeout = 5 * time.Second

func runServe() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	comps, err := manifest.LoadFile(cfg.Manifest)
	if err != nil {
		return err
	}

	handler, err := newHandler(cfg, comps, log.Default())
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("serving %d components on %s", len(comps), cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newHandler registers the manifest components and returns a mux serving
// them under the configured prefix, with an index page at the root that
// embeds every component in its default state.
func newHandler(cfg config.Server, comps []manifest.Component, logger *log.Logger) (http.Handler, error) {
	reg := webcmp.NewRegistry([]byte(cfg.Key),
		webcmp.WithPrefix(cfg.Prefix),
		webcmp.WithLogger(logger),
	)
	defs, err := manifest.Register(reg, comps)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(reg.Prefix(), reg.Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if err := webcmp.Render(w, r, indexPage(defs)); err != nil {
			logger.Printf("index: %v", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
		}
	})
	return mux, nil
}

func indexPage(defs []*webcmp.Definition[manifest.State]) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, indexHead); err != nil {
			return err
		}
		for _, def := range defs {
			if err := embedDefault(ctx, w, def); err != nil {
				return fmt.Errorf("%s: %w", def.Identifier(), err)
			}
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func embedDefault(ctx context.Context, w io.Writer, def *webcmp.Definition[manifest.State]) error {
	inst, err := def.New(ctx)
	if err != nil {
		return err
	}
	defer inst.Dispose()
	return webcmp.Embed(inst).Render(ctx, w)
}

const indexHead = `<!doctype html>
<html><head><meta charset="utf-8"><title>webcmp</title>
<script src="https://unpkg.com/htmx.org@2.0.4"></script>
</head><body>`
