package main

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/charithe/calcengine/pkg/calculator"
	"github.com/charithe/calcengine/pkg/convert"
	"github.com/charithe/calcengine/pkg/storage"
	"github.com/go-chi/chi/v5"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/zpages"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/channelz/service"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gopkg.in/alecthomas/kingpin.v2"
)

const httpTimeout = 5 * time.Second

var (
	app = kingpin.New("Calculator Server", "Calculator engine RPC server")

	debug         = app.Flag("debug", "Enable debug endpoints").Envar("CALC_DEBUG").Bool()
	listenAddr    = app.Flag("listen_addr", "gRPC listen address").Default(":8080").Envar("CALC_LISTEN_ADDR").String()
	logLevel      = app.Flag("log_level", "Log level").Default("info").Envar("CALC_LOG_LEVEL").Enum("error", "warn", "info", "debug")
	statusAddr    = app.Flag("status_addr", "HTTP address for status, metrics and the REST API").Default(":5000").Envar("CALC_STATUS_ADDR").String()
	storePath     = app.Flag("store", "Path to the SQLite store. History is kept in memory when empty").Envar("CALC_STORE").String()
	ratesAPIKey   = app.Flag("rates_api_key", "currencyapi.com API key used when the NBP rates are unavailable").Envar("CALC_RATES_API_KEY").String()
	ratesInterval = app.Flag("rates_interval", "Exchange rate refresh interval").Default("1h").Envar("CALC_RATES_INTERVAL").Duration()
	otlpEndpoint  = app.Flag("otlp_endpoint", "OTLP HTTP endpoint for traces. Tracing is disabled when empty").Envar("CALC_OTLP_ENDPOINT").String()
	tlsCA         = app.Flag("tls_ca", "Path to TLS CA certificate").Envar("CALC_TLS_CA").ExistingFile()
	tlsCert       = app.Flag("tls_cert", "Path to TLS certificate").Envar("CALC_TLS_CERT").ExistingFile()
	tlsKey        = app.Flag("tls_key", "Path to TLS key").Envar("CALC_TLS_KEY").ExistingFile()
)

func main() {
	// values already in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		kingpin.Fatalf("Failed to load .env: %v", err)
	}
	_ = kingpin.MustParse(app.Parse(os.Args[1:]))

	initLogging()
	run()
}

func run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := initTracing(ctx, *otlpEndpoint)
	if err != nil {
		zap.S().Fatalw("Failed to initialize tracing", "error", err)
	}

	exporter, err := initMetrics()
	if err != nil {
		zap.S().Fatalw("Failed to create OpenCensus exporter", "error", err)
	}

	backend, err := storage.Open(*storePath)
	if err != nil {
		zap.S().Fatalw("Failed to open store", "store", *storePath, "error", err)
	}
	defer backend.Close()

	converter := convert.NewConverter()
	go converter.Poll(ctx, convert.NewRateFetcher(convert.WithAPIKey(*ratesAPIKey)), *ratesInterval)

	svc := calculator.NewService(backend, converter)

	grpcListener := listen(*listenAddr, tlsFiles{ca: *tlsCA, cert: *tlsCert, key: *tlsKey})
	grpcServer := newGRPCServer(svc)
	go func() {
		zap.S().Infow("Starting gRPC server", "addr", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil {
			zap.S().Fatalw("gRPC server failed", "error", err)
		}
	}()

	httpServer := &http.Server{
		Handler:           newStatusRouter(svc, exporter, *debug),
		ErrorLog:          zap.NewStdLog(zap.L().Named("http")),
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       httpTimeout,
	}
	httpListener := listen(*statusAddr, tlsFiles{})
	go func() {
		zap.S().Infow("Starting HTTP server", "addr", httpListener.Addr())
		if err := httpServer.Serve(httpListener); !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("HTTP server failed", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	zap.S().Infow("Received signal", "signal", (<-sig).String())

	svc.Shutdown()
	cancel()
	grpcServer.GracefulStop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), httpTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("Failed to stop HTTP server", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zap.S().Warnw("Failed to flush traces", "error", err)
	}
}

func initMetrics() (*ocprom.Exporter, error) {
	if err := view.Register(ocgrpc.DefaultServerViews...); err != nil {
		return nil, errors.Wrap(err, "failed to register gRPC views")
	}
	if err := view.Register(calculator.Views...); err != nil {
		return nil, errors.Wrap(err, "failed to register calculator views")
	}

	registry, ok := prom.DefaultRegisterer.(*prom.Registry)
	if !ok {
		zap.S().Warn("Default Prometheus registerer is not a registry. Creating a new one.")
		registry = nil
	}

	exporter, err := ocprom.NewExporter(ocprom.Options{Registry: registry})
	if err != nil {
		return nil, err
	}

	view.RegisterExporter(exporter)
	view.SetReportingPeriod(15 * time.Second)
	return exporter, nil
}

func listen(addr string, files tlsFiles) net.Listener {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		zap.S().Fatalw("Failed to listen", "addr", addr, "error", err)
	}

	if !files.enabled() {
		return l
	}

	conf, err := files.serverConfig()
	if err != nil {
		zap.S().Fatalw("Failed to configure TLS", "error", err)
	}
	zap.S().Infow("TLS enabled", "addr", addr, "client_ca", files.ca != "")
	return tls.NewListener(l, conf)
}

func newGRPCServer(svc *calculator.Service) *grpc.Server {
	logger := zap.L().Named("grpc")

	levels := grpc_zap.WithLevels(func(code codes.Code) zapcore.Level {
		if code == codes.OK {
			return zapcore.DebugLevel
		}
		return grpc_zap.DefaultCodeToLevel(code)
	})

	recovery := grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
		zap.S().Errorw("Recovered from panic", "panic", p)
		return errors.New("internal error")
	})

	server := grpc.NewServer(
		grpc.StatsHandler(&ocgrpc.ServerHandler{}),
		grpc_middleware.WithUnaryServerChain(
			grpc_ctxtags.UnaryServerInterceptor(),
			grpc_zap.UnaryServerInterceptor(logger, levels),
			grpc_recovery.UnaryServerInterceptor(recovery),
		),
		grpc_middleware.WithStreamServerChain(
			grpc_ctxtags.StreamServerInterceptor(),
			grpc_zap.StreamServerInterceptor(logger, levels),
			grpc_recovery.StreamServerInterceptor(recovery),
		),
	)

	calculator.RegisterCalculatorServer(server, svc)
	healthpb.RegisterHealthServer(server, svc)
	reflection.Register(server)
	service.RegisterChannelzServiceToServer(server)

	return server
}

// newStatusRouter serves the health status, Prometheus metrics and the REST API under /v1.
// Profiling and zpages are added in debug mode.
func newStatusRouter(svc *calculator.Service, metrics http.Handler, debug bool) http.Handler {
	r := chi.NewRouter()
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.Check(r.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, "NOT SERVING")
			return
		}
		io.WriteString(w, "OK")
	})
	r.Handle("/metrics", metrics)
	r.Mount("/v1", svc.Routes())

	if debug {
		r.HandleFunc("/debug/pprof/*", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.Handle("/debug/rpcz", http.StripPrefix("/debug", zpages.Handler))
		r.Handle("/debug/tracez", http.StripPrefix("/debug", zpages.Handler))
	}

	return r
}
