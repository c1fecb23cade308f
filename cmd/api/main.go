package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vibepay/internal/auth"
	"vibepay/internal/config"
	"vibepay/internal/db"
	"vibepay/internal/gateway"
	internalhttp "vibepay/internal/http"
	"vibepay/internal/models"
	"vibepay/internal/services"
	"vibepay/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)

	inicis := gateway.NewInicis(cfg.Payment.Inicis.APIURL, cfg.Payment.Inicis.MID, cfg.Payment.Inicis.SignKey)
	toss := gateway.NewToss(cfg.Payment.Toss.APIURL, cfg.Payment.Toss.SecretKey)
	registry, err := gateway.NewRegistry(inicis, toss)
	if err != nil {
		log.Fatalf("gateway registry failed: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMins)*time.Minute)

	pointSvc := &services.PointService{Ledger: st}
	memberSvc := &services.MemberService{
		Members:        st,
		Ledger:         st,
		InitialBalance: cfg.Points.InitialBalance,
	}
	paymentSvc := &services.PaymentService{
		Payments: st,
		Orders:   st,
		Points:   pointSvc,
		Registry: registry,
	}
	orderSvc := &services.OrderService{
		Orders:         st,
		Payments:       paymentSvc,
		Points:         pointSvc,
		MinCardAmount:  cfg.Payment.MinCardAmount,
		DefaultGateway: models.GatewayType(cfg.Payment.DefaultGateway),
	}

	h := internalhttp.NewHandler(memberSvc, pointSvc, orderSvc, paymentSvc, tokens, inicis)
	srv := internalhttp.NewServer(h, tokens)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
