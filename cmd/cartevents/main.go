package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gomarketplace/configs"
	"gomarketplace/configs/loader/dotEnvLoader"
	k "gomarketplace/internal/delivery/kafka"
	"gomarketplace/internal/delivery/kafka/kafkaHandler"
	"gomarketplace/pkg/logger/logrus"
)

const consumers = 3

func main() {
	envLoader := dotEnvLoader.DotEnvLoader{Files: []string{".env"}}
	cfg := configs.MustLoad(envLoader)
	log := logrus.NewLogger(cfg.LogFile)

	handler := kafkaHandler.NewHandler(log)

	var started []*k.Consumer
	for i := 1; i <= consumers; i++ {
		c, err := k.NewConsumer(cfg, handler, log, i)
		if err != nil {
			log.Fatal(err)
		}
		started = append(started, c)
		go c.Start()
	}
	log.Infof("Tailing %s with %d consumers", cfg.KF.Topic, consumers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	log.Info("Shutting down...")

	wg := &sync.WaitGroup{}
	for i, c := range started {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Stop()
			log.Infof("Stopping consumer %d: %v", i+1, err)
		}()
	}
	wg.Wait()

	log.WithField("counts", handler.Counts()).Info("Events handled")
}
