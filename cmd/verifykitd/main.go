package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/optimode/verifykit/config"
	"github.com/optimode/verifykit/server"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	srv := server.New(cfg, log)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.WithFields(logrus.Fields{
		"port":        cfg.ServerPort,
		"environment": cfg.Environment,
	}).Info("verifykitd listening")

	if err := srv.Listen(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
