package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aleics/gql-dyn/internal/config"
	"github.com/aleics/gql-dyn/internal/events"
	"github.com/aleics/gql-dyn/internal/ingest"
	"github.com/aleics/gql-dyn/internal/server"
	"github.com/aleics/gql-dyn/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	// onReady, if set, is called with the bound addresses once both
	// listeners are open.
	onReady func(httpAddr, grpcAddr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(rootOpts, &ServeOptions{})
}

func newServeCommand(rootOpts *RootOptions, opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GraphQL over HTTP and gRPC",
		Long: `Start the GraphQL server.

HTTP serves GraphQL at /graphql, GraphiQL at / and a REST API under
--base-path. gRPC serves gqldyn.v1.QueryService with health and
reflection. The store is seeded from --records and, with --nats-url and
--ingest, keeps accepting batches from the ingest topic.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().String(config.KeyRecords, "", "seed records from this source (JSONL path, sqlite://, postgres://, s3://)")
	cmd.Flags().String(config.KeyHTTPAddr, "127.0.0.1:8080", "HTTP listen address (empty disables)")
	cmd.Flags().String(config.KeyGRPCAddr, "127.0.0.1:9090", "gRPC listen address (empty disables)")
	cmd.Flags().String(config.KeyBasePath, "/v1", "REST API base path")
	cmd.Flags().String(config.KeySchemaMode, config.SchemaModeStatic, "schema generation: static or per-request")
	cmd.Flags().String(config.KeyNATSURL, "", "NATS server for record events")
	cmd.Flags().Bool(config.KeyIngest, false, "consume record batches from NATS")
	cmd.Flags().String(config.KeyS3Region, "us-east-1", "region for s3:// record sources")
	cmd.Flags().String(config.KeyS3Endpoint, "", "custom S3 endpoint")
	cmd.Flags().Duration(config.KeyShutdownTimeout, 5*time.Second, "graceful shutdown timeout")
	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *ServeOptions) error {
	f := rootOpts.formatter(cmd)
	cfg := rootOpts.cfg
	logger := slog.Default()
	ctx := cmd.Context()

	provider := rootOpts.provider()
	gen := rootOpts.generator()

	var source server.SchemaSource
	if cfg.SchemaMode == config.SchemaModePerRequest {
		source = server.NewPerRequestSource(provider, gen, logger)
	} else {
		source = server.NewStaticSource(provider, gen)
	}
	s, err := source.Schema(ctx)
	if err != nil {
		return fail(f, catalogExitError(err))
	}
	logger.Info("schema generated",
		"kinds", len(s.Context().Kinds()),
		"fingerprint", s.Context().Fingerprint(),
		"mode", cfg.SchemaMode)

	st := store.New()
	defer st.Close()

	n, err := rootOpts.seed(ctx, cfg.Records, s.Context().Configuration(), st)
	if err != nil {
		return fail(f, err)
	}
	if cfg.Records != "" {
		logger.Info("store seeded", "records", n, "source", cfg.Records)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return fail(f, WrapExitError(ExitCommandError, "connect NATS", err))
		}
		publisher = p
	}
	defer publisher.Close()

	// Appends are checked against the schema being served, not the catalog file.
	svc := ingest.New(server.SchemaCatalog{Source: source}, st, ingest.WithPublisher(publisher), ingest.WithLogger(logger))

	if cfg.HTTPAddr == "" && cfg.GRPCAddr == "" {
		return fail(f, NewExitError(ExitCommandError, "nothing to serve: both http-addr and grpc-addr are empty"))
	}

	var sub *events.NATSSubscriber
	if cfg.Ingest {
		sub, err = events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return fail(f, WrapExitError(ExitCommandError, "connect NATS", err))
		}
		defer sub.Close()
	}

	var httpLn, grpcLn net.Listener
	if cfg.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fail(f, WrapExitError(ExitCommandError, "listen HTTP", err))
		}
		defer httpLn.Close()
	}
	if cfg.GRPCAddr != "" {
		grpcLn, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fail(f, WrapExitError(ExitCommandError, "listen gRPC", err))
		}
		defer grpcLn.Close()
	}

	g, ctx := errgroup.WithContext(ctx)
	var httpAddr, grpcAddr string

	if httpLn != nil {
		handler, err := server.New(server.Config{
			Source:   source,
			Store:    st,
			Ingest:   svc,
			BasePath: cfg.BasePath,
			Logger:   logger,
		})
		if err != nil {
			return fail(f, WrapExitError(ExitCommandError, "create HTTP server", err))
		}
		httpAddr = httpLn.Addr().String()
		srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			if err := srv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if grpcLn != nil {
		grpcAddr = grpcLn.Addr().String()
		gs := server.NewGRPCServer(server.NewQueryServer(source, st), logger)

		g.Go(func() error {
			if err := gs.Serve(grpcLn); err != nil {
				return fmt.Errorf("grpc: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			stopGRPC(gs.GracefulStop, gs.Stop, cfg.ShutdownTimeout)
			return nil
		})
	}

	if sub != nil {
		g.Go(func() error {
			err := svc.Subscribe(ctx, sub)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if httpAddr != "" {
		f.VerboseLog("OpenAPI at http://%s%s/openapi.json", httpAddr, cfg.BasePath)
		logger.Info("serving HTTP", "addr", httpAddr, "graphql", "/graphql", "rest", cfg.BasePath)
	}
	if grpcAddr != "" {
		logger.Info("serving gRPC", "addr", grpcAddr, "service", server.QueryServiceName)
	}
	if opts.onReady != nil {
		opts.onReady(httpAddr, grpcAddr)
	}

	if err := g.Wait(); err != nil {
		return fail(f, WrapExitError(ExitFailure, "server stopped", err))
	}
	logger.Info("server stopped")
	return nil
}

// stopGRPC waits up to timeout for in-flight calls before forcing a stop.
func stopGRPC(graceful, force func(), timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		graceful()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		force()
		<-done
	}
}
