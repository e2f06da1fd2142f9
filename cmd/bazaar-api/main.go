// README: Entry point; loads config, wires services, starts HTTP server and background consumers.
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

	"bazaar/internal/config"
	httptransport "bazaar/internal/http"
	"bazaar/internal/infra"
	"bazaar/internal/maps"
	"bazaar/internal/modules/delivery"
	"bazaar/internal/modules/notify"
	"bazaar/internal/modules/order"
	"bazaar/internal/modules/pricing"
	"bazaar/internal/rabbit"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	pricingSvc := pricing.NewService(cfg.Pricing)

	notifySvc := notify.NewService(notify.NewHub(), redisClient)
	go notifySvc.Run(ctx)

	orderStore := order.NewStore(dbPool, cfg.Pricing.Currency)
	orderSvc := order.NewService(orderStore, pricingSvc, notifySvc, cfg.Delivery.DefaultETA())

	var eta delivery.ETAEstimator
	if cfg.Maps.APIKey != "" {
		etaSvc, err := maps.NewETAService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		eta = etaSvc
	}

	agentStore := delivery.NewStore(dbPool, redisClient)
	deliverySvc := delivery.NewService(agentStore, orderSvc, eta, notifySvc)

	if cfg.Rabbit.URL != "" {
		conn, ch, err := infra.NewRabbitChannel(cfg.Rabbit.URL)
		if err != nil {
			log.Fatalf("rabbit init: %v", err)
		}
		defer conn.Close()
		if err := rabbit.SetupConsumers(ch, orderSvc); err != nil {
			log.Fatalf("rabbit consumers: %v", err)
		}
	}

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:       orderSvc,
		Delivery:     deliverySvc,
		Notify:       notifySvc,
		JWTSecret:    cfg.Auth.JWTSecret,
		SSEHeartbeat: cfg.Notify.Heartbeat(),
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("bazaar-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
