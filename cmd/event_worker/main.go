package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/search"
	"github.com/oksasatya/go-auth-service/internal/worker"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
)

const prefetch = 16

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env, cfg.LogLevel)
	if !cfg.EventsEnabled {
		logger.Info("EVENTS_ENABLED=false; event worker disabled")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var index worker.Indexer
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("elasticsearch client")
		}
		ui := search.NewUserIndex(es, cfg.ESUsersIndex)
		if err := ui.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Fatal("elasticsearch index")
		}
		index = ui
	}

	var mail worker.Sender
	if cfg.MailEnabled() {
		mail = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	} else {
		logger.Info("welcome emails disabled")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQUserEventsQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}
	msgs, err := ch.Consume(cfg.RabbitMQUserEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	h := worker.NewUserEventHandler(index, mail, cfg.AppName, logger)
	logger.WithField("queue", cfg.RabbitMQUserEventsQueue).Info("event worker listening")
	h.Consume(ctx, msgs)
	logger.Info("event worker stopped")
}
