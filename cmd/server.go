package cmd

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fluxionwatt/modbusgw/core"
	"github.com/fluxionwatt/modbusgw/internal/api"
	"github.com/fluxionwatt/modbusgw/internal/auth"
	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/db"
	"github.com/fluxionwatt/modbusgw/internal/httpserver"
	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/fluxionwatt/modbusgw/internal/modbusgw"
	"github.com/fluxionwatt/modbusgw/pluginapi"
	"github.com/gofiber/fiber/v3"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var disableAuth bool

func init() {
	rootCmd.AddCommand(serverCmd)

	flags := serverCmd.Flags()
	flags.BoolVar(&disableAuth, "disable_auth", false, "disable http api auth")
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("load config: %w", err))
			return
		}
		if debug {
			cfg.Debug = true
		}
		if disableAuth {
			cfg.DisableAuth = true
		}
		auth.NoAuth = cfg.DisableAuth

		logger, err := pluginapi.NewReopenLogger(cfg.LogPath, cfg.Debug)
		if err != nil {
			cobra.CheckErr(err)
			return
		}
		fmt.Printf("use log path: %s\n", cfg.LogPath)

		gdb, err := db.Open(cfg, logger.SqlLogger)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("db open error %w", err))
			return
		}

		if err := models.Migrate(gdb); err != nil {
			cobra.CheckErr(fmt.Errorf("db migrate %w", err))
			return
		}

		// Ensure root exists ("admin" password by default if created).
		// 确保 root 存在（首次创建默认密码 admin）。
		if err := models.EnsureRootUser(gdb); err != nil {
			cobra.CheckErr(fmt.Errorf("ensure root user %w", err))
			return
		}

		// 初始化默认 setting 数据（只补缺，不覆盖）
		// Seed default settings (insert missing only, do NOT overwrite)
		if err := db.SeedDefaultSettings(gdb); err != nil {
			cobra.CheckErr(fmt.Errorf("seed default settings failed %w", err))
			return
		}

		runLog := logrus.NewEntry(logger.RunLogger)

		mgr := modbusgw.NewClientManager(cfg, runLog)
		if err := mgr.Reload(gdb); err != nil {
			cobra.CheckErr(fmt.Errorf("load device registry %w", err))
			return
		}

		cache := modbusgw.NewCache(cfg.CacheTTL())
		metrics := modbusgw.NewMetrics()

		publisher := modbusgw.NewPublisher(cfg, runLog)
		if err := publisher.Start(); err != nil {
			logger.RunLogger.WithError(err).Warn("mqtt publisher did not connect at startup, will retry in background")
		}

		pipeline := modbusgw.NewPipeline(mgr, cache, metrics, publisher)

		poller, err := modbusgw.NewPoller(cfg, gdb, mgr, cache, publisher, metrics, runLog)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("build poller %w", err))
			return
		}

		rootCtx, rootCancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup

		var embeddedMQTT *mqtt.Server
		if cfg.MQTT.EmbedBroker {
			embeddedMQTT, err = startEmbeddedMQTT(cfg, logger.MqttLogger)
			if err != nil {
				cobra.CheckErr(fmt.Errorf("start embedded mqtt %w", err))
				return
			}
			publisher.AttachLocalBroker(embeddedMQTT)
		}

		if err := poller.Start(rootCtx); err != nil {
			cobra.CheckErr(fmt.Errorf("start poller %w", err))
			return
		}

		cycle := &core.Cycle{
			Conf:         cfg,
			Logger:       runLog,
			DB:           gdb,
			Mgr:          mgr,
			Cache:        cache,
			Metrics:      metrics,
			Publisher:    publisher,
			Pipeline:     pipeline,
			Poller:       poller,
			WG:           &wg,
			AccessLogger: logger.AccessLogger,
		}
		cycle.MQTT = embeddedMQTT

		if err := core.CreatePidFile(cfg.PID); err != nil {
			cobra.CheckErr(fmt.Errorf("already running? %w", err))
			return
		}

		// 捕获信号 / capture OS signals.
		go func() {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGUSR1, syscall.SIGTERM, syscall.SIGINT)

			for sig := range ch {
				switch sig {
				case syscall.SIGUSR1:
					log.Println("received SIGUSR1, reopening log file")
					if err := logger.Reopen(); err != nil {
						log.Printf("reopen log failed: %v\n", err)
					}
				case syscall.SIGTERM, syscall.SIGINT:
					log.Println("exiting")
					rootCancel()
					if err := poller.Stop(); err != nil {
						log.Printf("poller stop: %v\n", err)
					}
					mgr.CloseAll()
					publisher.Stop()
					if embeddedMQTT != nil {
						embeddedMQTT.Close()
					}
					wg.Wait()
					core.RemovePidFile(cfg.PID)
					logger.Close()
					os.Exit(0)
				}
			}
		}()

		httpServer := &api.Server{
			DB:       gdb,
			Cfg:      cfg,
			Mgr:      mgr,
			Cache:    cache,
			Metrics:  metrics,
			Pipeline: pipeline,
		}
		httpServer.StartAuditRetentionJob(rootCtx.Done())

		app := httpserver.New(logger.RunLogger, logger.AccessLogger)
		httpServer.Route(app)

		lnHTTP, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTP.Port))
		if err != nil {
			logger.RunLogger.Fatal("http listen failed: ", err)
		}
		fmt.Printf("use http at :%d\n", cfg.HTTP.Port)

		if err := app.Listener(lnHTTP, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			logger.RunLogger.Fatal("http app.Listener failed: ", err)
		}
	},
}

func startEmbeddedMQTT(cfg *config.Config, mqttLogger *logrus.Logger) (*mqtt.Server, error) {
	server, err := core.ServerMQTT(cfg.MQTT.EmbedAddress, mqttLogger)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := server.Serve(); err != nil {
			mqttLogger.WithError(err).Error("embedded mqtt broker stopped")
		}
	}()
	return server, nil
}
