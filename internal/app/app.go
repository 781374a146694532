package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/drstein77/grocerystore/internal/assistant"
	"github.com/drstein77/grocerystore/internal/auth"
	"github.com/drstein77/grocerystore/internal/config"
	"github.com/drstein77/grocerystore/internal/controllers"
	"github.com/drstein77/grocerystore/internal/dbkeeper"
	"github.com/drstein77/grocerystore/internal/filestore"
	"github.com/drstein77/grocerystore/internal/jobs"
	"github.com/drstein77/grocerystore/internal/logger"
	"github.com/drstein77/grocerystore/internal/middleware"
	"github.com/drstein77/grocerystore/internal/storage"
	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds a graceful shutdown.
const ShutdownTimeout = 5 * time.Second

type Server struct {
	ctx    context.Context
	option *config.Options
	done   chan struct{}

	mx       sync.Mutex
	stopping bool
	srv      *http.Server
	release  func(context.Context) // stops what Serve started besides srv

	Log *logger.Logger
}

// NewServer parses the configuration and sets up logging.
func NewServer(ctx context.Context) *Server {
	// create and initialize a new option instance
	option := config.NewOptions()
	option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel(), option.LogFile())
	if err != nil {
		log.Fatalln(err)
	}

	return &Server{
		ctx:    ctx,
		option: option,
		done:   make(chan struct{}),
		Log:    nLogger,
	}
}

// Serve wires the dependencies and serves HTTP until Shutdown is called.
func (server *Server) Serve() error {
	option := server.option

	if option.DataBaseDSN() == "" {
		return errors.New("database DSN is empty, set DATABASE_URI or -d")
	}
	if err := dbkeeper.Migrate(option.DataBaseDSN(), option.MigrationsDir(), server.Log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	keeper := dbkeeper.NewDBKeeper(server.ctx, option.DataBaseDSN, server.Log)
	if keeper == nil {
		return errors.New("cannot connect to the database")
	}

	tokens, err := auth.NewManager(option.JWTSecret(), option.TokenTTL())
	if err != nil {
		keeper.Close()
		return fmt.Errorf("session tokens: %w", err)
	}

	files, err := filestore.NewLocalStore(option.StorageDir(), option.PublicURL(), server.Log)
	if err != nil {
		keeper.Close()
		return err
	}

	var ai storage.Assistant
	if option.GeminiAPIKey() != "" {
		a, err := assistant.New(server.ctx, option.GeminiAPIKey(), option.GeminiModel(), server.Log)
		if err != nil {
			keeper.Close()
			return err
		}
		ai = a
	} else {
		server.Log.Warn("GEMINI_API_KEY is not set, chat and smart search translation are disabled")
	}

	store := storage.NewStorage(keeper, tokens, files, ai, server.Log)

	sched, err := jobs.NewScheduler(server.ctx, store, server.Log)
	if err != nil {
		keeper.Close()
		return err
	}

	basecontr := controllers.NewBaseController(store, server.Log)

	// create router and mount routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(server.Log))
	r.Use(chimw.Recoverer)
	r.Handle("/storage/*", http.StripPrefix("/storage/", http.FileServer(http.Dir(files.Dir()))))
	r.Mount("/", basecontr.Route())

	// configure and start the server
	srv := &http.Server{
		Addr:              option.RunAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sched.Start()
	go sched.RefreshRecommendations()

	return server.listen(srv, func(ctx context.Context) {
		sched.Stop(ctx)
		keeper.Close()
	})
}

// listen serves srv until Shutdown. When Shutdown already ran, it releases
// the resources itself and returns without listening.
func (server *Server) listen(srv *http.Server, release func(context.Context)) error {
	server.mx.Lock()
	if server.stopping {
		server.mx.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		release(ctx)
		return nil
	}
	server.srv, server.release = srv, release
	server.mx.Unlock()

	server.Log.Info("Server started", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	// wait for Shutdown to release resources
	<-server.done
	return nil
}

// Shutdown gracefully stops the server, the scheduler and the database pool.
// Calls after the first are no-ops.
func (server *Server) Shutdown(timeout time.Duration) {
	server.mx.Lock()
	if server.stopping {
		server.mx.Unlock()
		return
	}
	server.stopping = true
	srv, release := server.srv, server.release
	server.mx.Unlock()

	defer close(server.done)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			server.Log.Error("Server shutdown error", zap.Error(err))
		}
	}
	if release != nil {
		release(ctx)
	}

	server.Log.Info("Server stopped")
	_ = server.Log.Sync()
}
