package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/foodable/foodable-api/internal/catalog"
	"github.com/foodable/foodable-api/internal/config"
	"github.com/foodable/foodable-api/internal/httpx"
	"github.com/foodable/foodable-api/internal/identity"
	kafkax "github.com/foodable/foodable-api/internal/kafka"
	"github.com/foodable/foodable-api/internal/orders"
	"github.com/foodable/foodable-api/internal/postgres"
	"github.com/foodable/foodable-api/internal/redisx"
	"github.com/foodable/foodable-api/internal/reservation"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderReserved, 1024)
	prod.Start(ctx)

	// Wiring
	auth := identity.NewAuth(cfg.JWTSecret, cfg.CookieName, cfg.CookieDays)
	users := identity.NewRepository(db)
	cat := catalog.NewRepository(db)
	engine := &reservation.Engine{Store: reservation.NewPostgresStore(db)}

	router := httpx.NewRouter()
	router.Use(auth.ParseUser)
	(&httpx.AuthHandler{Users: users, Auth: auth}).Register(router)
	(&httpx.CatalogHandler{Repo: cat, Redis: rdb}).Register(router)
	(&httpx.ReservationHandler{
		Engine:   engine,
		Redis:    rdb,
		Producer: prod,
		Service:  cfg.ServiceName,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // no more publishes; loop flushes the inbox
	prod.WaitClosed() // wait for the drain to finish
}
