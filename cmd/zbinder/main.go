package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/supby/zbinder/internal/bindingtable"
	"github.com/supby/zbinder/internal/configuration"
	"github.com/supby/zbinder/internal/db"
	"github.com/supby/zbinder/internal/logger"
	"github.com/supby/zbinder/internal/mqtt"
	"github.com/supby/zbinder/internal/router"
	"github.com/supby/zbinder/internal/service"
	"github.com/supby/zbinder/internal/transport"
	"github.com/supby/zbinder/internal/zcldef"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var configFile = flag.String("c", "./configuration.yaml", "path to config file name")
	flag.Parse()

	configService, err := configuration.Init(*configFile)
	if err != nil {
		logger.GetLogger("[main]", logger.LogLevelError).Error("Configuration initialization error: %v", err)
		return 1
	}

	cfg := configService.GetConfiguration()
	rootLogger := logger.GetLogger("[main]", logger.ParseLevel(cfg.LogLevel))

	table := bindingtable.New()

	if cfg.Bindings.Persist {
		bindingDB, err := db.NewBindingDB(cfg.Bindings.DBPath)
		if err != nil {
			rootLogger.Error("db initialization error: %v", err)
			return 1
		}
		defer bindingDB.Close(ctx)

		if err := service.NewBindingPersistence(table, bindingDB, rootLogger).Restore(ctx); err != nil {
			rootLogger.Error("restoring bindings: %v", err)
			return 1
		}
	}

	zclDefService := zcldef.New(cfg.ZCLDefinitionFile, rootLogger)

	mqttClient, mqttDisconnect, err := mqtt.NewClient(&cfg.MqttConfiguration, rootLogger)
	if err != nil {
		rootLogger.Error("mqtt initialization error: %v", err)
		return 1
	}
	defer mqttDisconnect()

	mqttRouter := router.NewMQTTRouter(mqttClient, table, zclDefService, rootLogger)
	zdoRouter := router.NewZDORouter(table, rootLogger)
	zigbeeTransport := transport.NewTransport(&cfg, zdoRouter, rootLogger)

	setupSubscriptions(ctx, table, mqttRouter, zdoRouter, zigbeeTransport, rootLogger)

	if err := zigbeeTransport.StartAsync(ctx); err != nil {
		rootLogger.Error("zstack initialization error: %v", err)
		return 1
	}
	defer zigbeeTransport.Stop()

	mqttRouter.PublishBindings()

	waitForInterruptSignal()

	rootLogger.Info("exiting app...")

	return 0
}

func setupSubscriptions(
	ctx context.Context,
	table bindingtable.BindingTable,
	mqttRouter router.MQTTRouter,
	zdoRouter router.ZDORouter,
	zigbeeTransport transport.Transport,
	log logger.Logger) {
	table.SubscribeOnChange(mqttRouter.PublishBindingChange)
	zdoRouter.SubscribeOnResponse(func(resp router.Response) {
		if err := zigbeeTransport.SendResponse(ctx, resp); err != nil {
			log.Warn("Failed to send response 0x%04x to 0x%016x: %v", uint16(resp.ClusterID), uint64(resp.Destination), err)
		}
	})
}

func waitForInterruptSignal() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt)
	defer func() {
		signal.Stop(sigchan)
	}()
	<-sigchan
}
