package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vgrid/gridsched/internal/common"
	"github.com/vgrid/gridsched/internal/common/health"
	"github.com/vgrid/gridsched/internal/common/task"
	"github.com/vgrid/gridsched/internal/common/util"
	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/metrics"
	"github.com/vgrid/gridsched/internal/gridsched/peer"
	"github.com/vgrid/gridsched/internal/gridsched/server"
)

const CustomConfigLocation string = "config"

func init() {
	pflag.String(CustomConfigLocation, "", "Fully qualified path to application configuration file")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	config := configuration.GridschedConfig{
		Scheduling: configuration.DefaultSchedulingConfig(),
	}
	userSpecifiedConfig := viper.GetString(CustomConfigLocation)
	common.LoadConfig(&config, "./config/gridsched", userSpecifiedConfig)

	if err := config.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	log.Infof("Starting server %s...", config.ServerID)

	srv := server.New(config.ServerID, config.Scheduling, &util.DefaultClock{})
	for _, p := range config.Peers {
		srv.AddPeer(p.ID, peer.NewHTTPLink(p.Url), p.MigrateCost)
	}

	listener, err := net.Listen("tcp", config.ListenAddress)
	if err != nil {
		log.WithError(err).Errorf("cannot listen on %s", config.ListenAddress)
		os.Exit(2)
	}
	startupChecker := health.NewStartupCompleteChecker()
	mux := http.NewServeMux()
	mux.Handle("/", peer.NewHandler(srv))
	health.SetupHttpMux(mux, health.NewMultiChecker(startupChecker))
	peerServer := &http.Server{Handler: mux}
	go func() {
		if err := peerServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("peer api server failed")
		}
	}()

	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	taskManager := task.NewBackgroundTaskManager(metrics.MetricPrefix)
	taskManager.Register(func() {
		if err := srv.Tick(context.Background()); err != nil {
			log.WithError(err).Warn("scheduler tick finished with transient errors")
		}
	}, config.Scheduling.TickInterval, "scheduler_tick")
	startupChecker.MarkComplete()

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	<-stopSignal

	log.Info("Shutting down...")
	taskManager.StopAll(10 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := peerServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("failed to shut down peer api server")
	}
}
