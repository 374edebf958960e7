package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/addressbook"
	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/configs"
	"github.com/flow-hydraulics/token-wallet-ledger/datastore/gorm"
	"github.com/flow-hydraulics/token-wallet-ledger/events"
	"github.com/flow-hydraulics/token-wallet-ledger/handlers"
	"github.com/flow-hydraulics/token-wallet-ledger/ledger"
	"github.com/flow-hydraulics/token-wallet-ledger/otel"
	"github.com/flow-hydraulics/token-wallet-ledger/persistence"
	"github.com/flow-hydraulics/token-wallet-ledger/reconciler"
	"github.com/flow-hydraulics/token-wallet-ledger/session"
	"github.com/flow-hydraulics/token-wallet-ledger/system"
	"github.com/flow-hydraulics/token-wallet-ledger/transfers"
	"github.com/gomodule/redigo/redis"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const version = "0.1.0"

var (
	sha1ver   string // sha1 revision used to build the program
	buildTime string // when the executable was built
)

func main() {
	var (
		printVersion bool
		envFilePath  string
	)

	flag.BoolVar(&printVersion, "version", false, "if true, print version and exit")
	flag.StringVar(&envFilePath, "envfile", "", "optional env file to load before parsing the environment")
	flag.Parse()

	if printVersion {
		fmt.Printf("v%s build on %s from sha1 %s\n", version, buildTime, sha1ver)
		os.Exit(0)
	}

	cfg, err := configs.ParseConfig(&configs.Options{EnvFilePath: envFilePath})
	if err != nil {
		panic(err)
	}

	runServer(cfg)

	os.Exit(0)
}

func runServer(cfg *configs.Config) {
	configs.ConfigureLogger(cfg)

	log.Info("Starting server")

	startedAt := time.Now()

	// Tracing
	if cfg.TracingEnabled {
		tp, err := otel.InitTracer(cfg.TracingProjectID, cfg.TracingSampleRatio)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Warn(err)
			}
			log.Info("Stopped tracer provider")
		}()
	}

	// Persistence
	var (
		store       persistence.Store
		systemStore system.Store
		redisPool   *redis.Pool
	)

	switch cfg.StoreType {
	case configs.StoreTypeGorm:
		db, err := gorm.New(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer gorm.Close(db)

		store = persistence.NewGormStore(db)
		systemStore = system.NewGormStore(db)
	case configs.StoreTypeRedis:
		redisPool = persistence.NewRedisPool(cfg.RedisURL)
		defer func() {
			log.Info("Closing Redis pool..")
			if err := redisPool.Close(); err != nil {
				log.Warn(err)
			}
		}()

		store = persistence.NewRedisStore(redisPool)
		systemStore = system.NewMemoryStore()
	case configs.StoreTypeMemory:
		log.Warn("Using in-memory store, nothing will survive a restart")
		store = persistence.NewMemoryStore()
		systemStore = system.NewMemoryStore()
	}

	systemService := system.NewService(
		systemStore,
		system.WithPauseDuration(cfg.PauseDuration),
	)

	// Networks
	networks := chain.DefaultNetworks()
	if cfg.NetworksFile != "" {
		var err error
		networks, err = chain.LoadNetworks(cfg.NetworksFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	// Node client
	dialCtx, cancelDial := context.WithTimeout(context.Background(), cfg.RPCDialTimeout)
	client, err := chain.Dial(dialCtx, cfg.RPCURL, chain.WithRateLimit(cfg.RPCRateLimit))
	cancelDial()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		client.Close()
		log.Info("Closed node client")
	}()

	// Notifications
	stream := handlers.NewStream()
	defer func() {
		stream.Close()
		log.Info("Closed event stream")
	}()

	notifier := events.NewBroadcaster(stream)

	if cfg.WebhookURL != "" {
		webhook, err := events.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout)
		if err != nil {
			log.Fatal(err)
		}
		defer webhook.Close()
		notifier.Register(webhook)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafka.Close(); err != nil {
				log.Warn(err)
			}
		}()
		notifier.Register(kafka)
	}

	// Stores and services
	ledgerStore := ledger.NewStore(
		store,
		ledger.WithLimit(cfg.HistoryLimit),
		ledger.WithNotifier(notifier),
	)

	book := addressbook.NewStore(store, addressbook.WithNotifier(notifier))
	if err := book.Load(context.Background()); err != nil {
		log.Fatal(err)
	}

	rec := reconciler.New(
		client,
		ledgerStore,
		reconciler.WithInterval(cfg.ReconcileInterval),
		reconciler.WithMaxRate(cfg.ReconcileMaxRate),
		reconciler.WithSystemService(systemService),
	)

	defer func() {
		rec.Stop()
		log.Info("Stopped reconciler")
	}()

	sess := session.New(
		ledgerStore,
		rec,
		session.WithNotifier(notifier),
		session.WithNetworks(networks),
	)

	var transferOpts []transfers.Option
	if cfg.TokenAddress != "" {
		transferOpts = append(transferOpts, transfers.WithToken(cfg.TokenAddress, cfg.TokenSymbol, client))
	} else {
		log.Info("no token contract configured, balance disabled")
	}
	transferService := transfers.NewService(ledgerStore, book, sess, transferOpts...)

	// HTTP handling
	systemHandler := handlers.NewSystem(systemService)
	sessionHandler := handlers.NewSession(sess)
	transactionHandler := handlers.NewTransactions(ledgerStore, transferService, cfg.TokenSymbol, time.Local)
	addressBookHandler := handlers.NewAddressBook(book)
	networksHandler := handlers.NewNetworks(networks)

	r := mux.NewRouter()

	if cfg.TracingEnabled {
		r.Use(otelmux.Middleware("token-wallet-ledger"))
	}

	// Catch the api version
	rv := r.PathPrefix("/{apiVersion}").Subrouter()

	// Debug
	rv.Handle("/debug", handlers.Debug(handlers.BuildInfo{
		RepoURL:   "https://github.com/flow-hydraulics/token-wallet-ledger",
		Version:   version,
		Sha1ver:   sha1ver,
		BuildTime: buildTime,
		StartedAt: startedAt,
	})).Methods(http.MethodGet)

	// Health
	rv.Handle("/health/ready", handlers.Ready(func() error {
		_, err := systemService.GetSettings()
		return err
	})).Methods(http.MethodGet)
	rv.Handle("/health/liveness", handlers.Liveness(func() (interface{}, error) {
		return struct {
			Reconciling   bool          `json:"reconciling"`
			StreamClients int           `json:"streamClients"`
			Session       session.State `json:"session"`
		}{rec.Running(), stream.ClientCount(), sess.State()}, nil
	})).Methods(http.MethodGet)

	// System
	rv.Handle("/system/settings", systemHandler.GetSettings()).Methods(http.MethodGet)
	rv.Handle("/system/settings", systemHandler.SetSettings()).Methods(http.MethodPost)

	// Session
	rv.Handle("/session", sessionHandler.Details()).Methods(http.MethodGet)                // details
	rv.Handle("/session", sessionHandler.Connect()).Methods(http.MethodPost)               // connect or switch account
	rv.Handle("/session", sessionHandler.Disconnect()).Methods(http.MethodDelete)          // disconnect
	rv.Handle("/session/account", sessionHandler.SwitchAccount()).Methods(http.MethodPost) // switch account
	rv.Handle("/session/network", sessionHandler.SwitchNetwork()).Methods(http.MethodPost) // switch network

	// Networks
	rv.Handle("/networks", networksHandler.List()).Methods(http.MethodGet)              // list
	rv.Handle("/networks/{chainId}", networksHandler.Details()).Methods(http.MethodGet) // details

	// Transactions
	rv.Handle("/transactions", transactionHandler.List()).Methods(http.MethodGet)           // list
	rv.Handle("/transactions", transactionHandler.Create()).Methods(http.MethodPost)        // record
	rv.Handle("/transactions/{hash}", transactionHandler.Details()).Methods(http.MethodGet) // details
	rv.Handle("/balance", transactionHandler.Balance()).Methods(http.MethodGet)

	// Address book
	rv.Handle("/address-book", addressBookHandler.List()).Methods(http.MethodGet)                    // list
	rv.Handle("/address-book", addressBookHandler.Add()).Methods(http.MethodPost)                    // add
	rv.Handle("/address-book/lookup/{address}", addressBookHandler.Lookup()).Methods(http.MethodGet) // lookup
	rv.Handle("/address-book/{ref}", addressBookHandler.Remove()).Methods(http.MethodDelete)         // remove by index or id

	// Event stream
	rv.Handle("/stream", stream.Connect()).Methods(http.MethodGet)

	var is handlers.IdempotencyStore = handlers.NewIdempotencyStoreLocal()
	if redisPool != nil {
		is = handlers.NewIdempotencyStoreRedis(redisPool)
	}

	h := handlers.UseTimeout(r, cfg.ServerRequestTimeout)
	h = handlers.UseIdempotency(h, 1*time.Hour, is)
	h = handlers.UseCors(h)
	h = handlers.UseLogging(h)
	h = handlers.UseCompress(h)

	// Server boilerplate
	srv := &http.Server{
		Handler:      h,
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		WriteTimeout: 0, // Disabled, set cfg.ServerRequestTimeout instead
		ReadTimeout:  0, // Disabled, set cfg.ServerRequestTimeout instead
	}

	// Run our server in a goroutine so that it doesn't block.
	go func() {
		log.
			WithFields(log.Fields{
				"host": cfg.Host,
				"port": cfg.Port,
			}).
			Info("Server listening")
		if err := srv.ListenAndServe(); err != nil {
			log.Warn(err)
		}
	}()

	// Trap interupt and gracefully shutdown the server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Block until we receive our signal.
	sig := <-c

	log.Infof("Got signal: %s. Shutting down..", sig)

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("Error in server shutdown: %s", err)
	}
}
