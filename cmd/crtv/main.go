package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/totegamma/crtv-studio/client"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/infra/database"
	"github.com/totegamma/crtv-studio/internal/infra/gateway"
	"github.com/totegamma/crtv-studio/internal/infra/repository"
	"github.com/totegamma/crtv-studio/internal/present/rest"
	authmw "github.com/totegamma/crtv-studio/internal/present/rest/middleware"
	"github.com/totegamma/crtv-studio/internal/service"
	"github.com/totegamma/crtv-studio/internal/usecase"
)

const serviceName = "crtv-studio"

func main() {
	path := os.Getenv("CRTV_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	conf, err := config.Load(path)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	setupLogger(conf.Server.LogLevel)

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			panic("failed to setup trace provider: " + err.Error())
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	defer rdb.Close()

	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	api, err := client.New("livepeer", conf.Livepeer.APIURL, conf.Livepeer.APIKey)
	if err != nil {
		panic("failed to setup livepeer client: " + err.Error())
	}
	ai, err := client.New("livepeer-ai", conf.Livepeer.GatewayURL, conf.Livepeer.APIKey)
	if err != nil {
		panic("failed to setup livepeer ai client: " + err.Error())
	}
	fetch, err := client.New("fetch", "", "")
	if err != nil {
		panic("failed to setup fetch client: " + err.Error())
	}

	livepeer := gateway.NewLivepeer(api, ai, conf.Livepeer)

	var transcriber usecase.Transcriber = livepeer
	if conf.Speech.Provider == "gcp" {
		speech, err := gateway.NewSpeech(ctx, conf.Speech)
		if err != nil {
			panic("failed to setup speech client: " + err.Error())
		}
		defer speech.Close()
		transcriber = speech
	}

	var chain usecase.TokenContract
	if conf.Chain.RPCURL != "" && conf.Chain.TokenContract != "" {
		c, err := gateway.NewChain(ctx, conf.Chain)
		if err != nil {
			panic("failed to connect chain: " + err.Error())
		}
		chain = c
	} else {
		slog.Warn("chain is not configured, token gating is disabled", slog.String("module", "main"))
	}

	var blob usecase.BlobStore
	var subtitles *gateway.Subtitles
	if conf.Storage.Endpoint != "" {
		b, err := gateway.NewBlob(ctx, conf.Storage)
		if err != nil {
			panic("failed to setup blob storage: " + err.Error())
		}
		blob = b
		subtitles = gateway.NewSubtitles(mc, b, fetch)
	} else {
		subtitles = gateway.NewSubtitles(mc, nil, fetch)
	}

	documentRepo := repository.NewDocumentRepository(db)
	sessionRepo := repository.NewSessionRepository(rdb)

	signalService := service.NewSignalService(rdb)
	authService := service.NewAuthService(conf.Server)

	storeUsecase := usecase.NewStoreUsecase(documentRepo, subtitles, conf.Orbis)
	captionUsecase := usecase.NewCaptionUsecase(transcriber, livepeer)
	gateUsecase := usecase.NewTokenGateUsecase(storeUsecase, chain, livepeer)
	uploadUsecase := usecase.NewUploadUsecase(
		sessionRepo,
		signalService,
		storeUsecase,
		captionUsecase,
		livepeer,
		chain,
		blob,
		conf.Upload,
	)

	handler := rest.NewHandler(
		conf,
		captionUsecase,
		storeUsecase,
		gateUsecase,
		uploadUsecase,
		livepeer,
		signalService,
	)

	authMiddleware := authmw.NewAuthMiddleware(authService)

	e := echo.New()
	e.HideBanner = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(conf.Server.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: conf.Server.AllowOrigins,
		}))
	} else {
		e.Use(middleware.CORS())
	}
	e.Use(authMiddleware.IdentifyIdentity)

	handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}

func setupLogger(level string) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv})
	slog.SetDefault(slog.New(handler))
}

func setupTraceProvider(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	opts := []otlptracehttp.Option{}
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
