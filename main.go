package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	auth "Trestle/internal/auth"
	analysis "Trestle/internal/calc/analysis"
	autofix "Trestle/internal/calc/autofix"
	column "Trestle/internal/calc/column"
	loads "Trestle/internal/calc/loads"
	"Trestle/internal/calc/model"
	batch "Trestle/internal/calc/premium/batch"
	importer "Trestle/internal/calc/premium/importer"
	recommend "Trestle/internal/calc/premium/recommend"
	report "Trestle/internal/calc/report"
	"Trestle/internal/config"
	design "Trestle/internal/design"
	"Trestle/internal/logging"
	repo "Trestle/internal/repo"
	"Trestle/internal/workspace"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func HandleList(mux *mux.Router, cfg *config.Config, store repo.Repository) {
	inv := model.StandardInventory()
	wsOpts := cfg.Analysis.Workspace()

	authEnv := &auth.Authenv{
		JWTkey:   []byte(cfg.Auth.TokenKey),
		Repo:     store,
		TTL:      cfg.Auth.TokenTTL,
		Insecure: !cfg.Server.TLS(),
	}
	designH := &design.Handler{
		Repo:       store,
		Workspaces: workspace.NewRegistry(inv, wsOpts),
		Inventory:  inv,
	}

	limiter := auth.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")

	analysisH := &analysis.Handler{Inventory: inv, Options: wsOpts.Analysis, MaxRepairIterations: wsOpts.MaxRepairIterations}
	autofixH := &autofix.Handler{Inventory: inv, PivotTolerance: wsOpts.Analysis.PivotTolerance}
	columnH := &column.Handler{}
	loadsH := &loads.Handler{}
	batchH := &batch.Handler{Inventory: inv, Options: wsOpts.Analysis}
	reportH := &report.Handler{Inventory: inv, Options: wsOpts.Analysis}
	importH := &importer.Handler{}
	recommendH := &recommend.Handler{Inventory: inv}

	api.HandleFunc("/tools/analyze", analysisH.Calc).Methods("POST")
	api.HandleFunc("/tools/autofix", autofixH.Fix).Methods("POST")
	api.HandleFunc("/tools/column/calc", columnH.Calc).Methods("POST")
	api.HandleFunc("/tools/loads/calc", loadsH.Calc).Methods("POST")
	api.HandleFunc("/tools/batch", batchH.Analyze).Methods("POST")
	api.HandleFunc("/tools/report/pdf", reportH.Generate).Methods("POST")
	api.HandleFunc("/tools/import", importH.Design).Methods("POST")
	api.HandleFunc("/tools/recommend", recommendH.Stock).Methods("POST")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.APIMiddleware)

	secureApi.HandleFunc("/designs", designH.List).Methods("GET")
	secureApi.HandleFunc("/designs", designH.Create).Methods("POST")
	secureApi.HandleFunc("/designs/import", designH.Import).Methods("POST")
	secureApi.HandleFunc("/designs/{id:[0-9]+}", designH.Get).Methods("GET")
	secureApi.HandleFunc("/designs/{id:[0-9]+}", designH.Update).Methods("PUT")
	secureApi.HandleFunc("/designs/{id:[0-9]+}/members", designH.AddMember).Methods("POST")
	secureApi.HandleFunc("/designs/{id:[0-9]+}/analyze", designH.Analyze).Methods("POST")
	secureApi.HandleFunc("/designs/{id:[0-9]+}/autofix", designH.Autofix).Methods("POST")
	secureApi.HandleFunc("/designs/{id:[0-9]+}/frame", designH.Frame).Methods("GET")
	secureApi.HandleFunc("/designs/{id:[0-9]+}/report", designH.Report).Methods("GET")
	secureApi.HandleFunc("/designs/{id:[0-9]+}/export", designH.Export).Methods("GET")

	static := cfg.Server.StaticDir
	authFileServer := http.FileServer(http.Dir(filepath.Join(static, "auth")))
	mux.PathPrefix("/auth/").
		Handler(authEnv.RedirectIfLoggedIn(http.StripPrefix("/auth", authFileServer)))
	designFileServer := http.FileServer(http.Dir(filepath.Join(static, "designs")))
	mux.PathPrefix("/designs/").
		Handler(authEnv.AuthMiddleware(http.StripPrefix("/designs", designFileServer)))
	mainFileServer := http.FileServer(http.Dir(filepath.Join(static, "main")))
	mux.PathPrefix("/").
		Handler(mainFileServer)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repo.Repository, func()) {
	if cfg.URL == "" {
		log.Warn("database.url not set, designs are kept in memory")
		return repo.NewMemoryRepository(), func() {}
	}
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := repo.InitDB(dbCtx, cfg.URL, cfg.MaxOpenConns)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	return repo.NewPostgresUserDB(db), func() { db.Close() }
}

func main() {
	cfg, err := config.Load(os.Getenv("TRESTLE_CONFIG"))
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}
	logging.Init(cfg.Logging)
	if cfg.Auth.TokenKey == "" {
		log.Fatal("auth.token_key (TOKEN_KEY) is not set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore := openStore(ctx, cfg.Database)
	defer closeStore()
	mux := mux.NewRouter()
	HandleList(mux, cfg, store)
	handler := CORS(mux)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithFields(log.Fields{"addr": cfg.Server.Addr, "tls": cfg.Server.TLS()}).Info("starting server")
		var err error
		if cfg.Server.TLS() {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, closing active connections")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server shutdown failed")
	}
	log.Info("server stopped")

	wg.Wait()
}
