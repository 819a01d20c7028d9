package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trendmart/internal/access"
	"trendmart/internal/auth"
	"trendmart/internal/config"
	"trendmart/internal/events"
	"trendmart/internal/models"
	"trendmart/internal/obs"
	"trendmart/internal/payments"
	"trendmart/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger

	store      models.Store
	principals models.PrincipalStore
	issuer     *auth.Issuer
	resolver   *access.Resolver
	intents    payments.IntentCreator
	events     events.Publisher
	validate   *validator.Validate

	corsOrigins               map[string]bool
	statusUpdateRequiresAdmin bool

	wg sync.WaitGroup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	addr := flag.String("addr", cfg.Addr, "HTTP network address")
	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, "trendmart", cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		errorLog.Fatal(err)
	}

	app := &application{
		errorLog:                  errorLog,
		infoLog:                   infoLog,
		issuer:                    auth.NewIssuer(cfg.TokenSecret, cfg.TokenTTL),
		validate:                  validator.New(validator.WithRequiredStructEnabled()),
		corsOrigins:               originSet(cfg.CORSOrigins),
		statusUpdateRequiresAdmin: cfg.StatusUpdateRequiresAdmin,
	}

	switch cfg.StoreDriver {
	case "memory":
		mem := models.NewMemoryStore()
		app.store, app.principals = mem, mem
		infoLog.Println("Using in-memory store")
	default:
		client, err := connectMongo(ctx, cfg)
		if err != nil {
			errorLog.Fatal(err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}()
		db := client.Database(cfg.MongoDatabase)
		store := models.NewMongoDB(db, cfg.MongoTimeout, cfg.MongoTransactions)
		if err := store.EnsureIndexes(ctx); err != nil {
			errorLog.Fatal(err)
		}
		app.store = store
		app.principals = &repository.UserRepository{Collection: store.Users, Timeout: cfg.MongoTimeout}
		infoLog.Println("Connected to MongoDB!")
	}
	app.resolver = access.NewResolver(app.principals)

	if cfg.StripeSecretKey != "" {
		app.intents = payments.NewStripe(cfg.StripeSecretKey, cfg.PaymentCurrency)
	} else {
		app.intents = payments.Disabled{}
		infoLog.Println("STRIPE_SECRET_KEY not set; payment intents disabled")
	}

	if cfg.RabbitURL != "" {
		pub, err := events.NewRabbit(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			errorLog.Fatal(err)
		}
		app.events = pub
	} else {
		app.events = events.Nop{}
	}

	srv := &http.Server{
		Addr:         *addr,
		ErrorLog:     errorLog,
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		infoLog.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errorLog.Println(err)
		}
	}()

	infoLog.Printf("Starting TrendMart on %s", *addr)
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		errorLog.Println(err)
	}

	app.wg.Wait()
	_ = app.events.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = shutdownTracer(shutdownCtx)
}

func connectMongo(ctx context.Context, cfg config.App) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1).SetStrict(true).SetDeprecationErrors(true)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func originSet(origins []string) map[string]bool {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		set[o] = true
	}
	return set
}
