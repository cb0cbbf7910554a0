package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	snsClient "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"storefix.io/maintenance/internal/alerts"
	notificationData "storefix.io/maintenance/internal/dynamodb/notifications"
	requestData "storefix.io/maintenance/internal/dynamodb/requests"
	"storefix.io/maintenance/internal/dynamodb/token"
	"storefix.io/maintenance/internal/images/hosted"
	"storefix.io/maintenance/internal/retention"
	snsServices "storefix.io/maintenance/internal/sns/services"
)

var (
	sweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_sweeps_total",
			Help: "Total number of retention sweeps, by outcome",
		},
		[]string{"outcome"},
	)

	documentsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_documents_deleted_total",
			Help: "Total number of documents removed by retention sweeps",
		},
		[]string{"collection"},
	)

	imagesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_images_removed_total",
			Help: "Total number of hosted images removed alongside swept requests",
		},
	)
)

type SweeperConfig struct {
	TableName         string `mapstructure:"table_name"`
	IndexName         string `mapstructure:"index_name"`
	Schedule          string `mapstructure:"schedule"`
	RequestDays       int    `mapstructure:"request_days"`
	NotificationDays  int    `mapstructure:"notification_days"`
	MetricsListenAddr string `mapstructure:"metrics_listen_addr"`
	AlertTopicArn     string `mapstructure:"alert_topic_arn"`
}

func LoadConfig() (*SweeperConfig, error) {
	viper.SetConfigName("sweeper")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/maintenance")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("sweeper")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("schedule", "0 3 * * *")
	viper.SetDefault("request_days", retention.DefaultRequestRetentionDays)
	viper.SetDefault("notification_days", retention.DefaultNotificationRetentionDays)
	viper.SetDefault("metrics_listen_addr", ":9090")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg SweeperConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("table_name is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index_name is required")
	}
	return &cfg, nil
}

func runSweep(engine *retention.Engine, cfg *SweeperConfig, alerter alerts.AlertService, logger *zap.Logger) {
	requests := engine.SweepCompletedRequests(cfg.RequestDays)
	notifications := engine.SweepOldNotifications(cfg.NotificationDays)
	result := retention.FullSweepResult{
		Requests:             requests,
		Notifications:        notifications,
		TotalDeleted:         requests.DeletedCount + notifications.DeletedCount,
		TotalImagesProcessed: requests.ImagesProcessed,
	}
	outcome := "success"
	if !result.Requests.Success || !result.Notifications.Success {
		outcome = "failure"
	}
	sweepsTotal.WithLabelValues(outcome).Inc()
	documentsDeleted.WithLabelValues("requests").Add(float64(result.Requests.DeletedCount))
	documentsDeleted.WithLabelValues("notifications").Add(float64(result.Notifications.DeletedCount))
	imagesRemoved.Add(float64(result.Requests.ImagesRemoved))
	if alerter != nil {
		if err := alerter.PublishSweepSummary(result); err != nil {
			logger.Warn("failed to publish sweep summary", zap.Error(err))
		}
	}
	logger.Info("scheduled sweep finished",
		zap.String("outcome", outcome),
		zap.Int("totalDeleted", result.TotalDeleted),
		zap.Int("imagesProcessed", result.TotalImagesProcessed),
	)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to build the logger.")
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}
	client := dynamodb.NewFromConfig(awsCfg)
	marshaler := token.NewGCM()
	requestRepo := requestData.NewRequestService(cfg.TableName, cfg.IndexName, *client, marshaler)
	notificationRepo := notificationData.NewNotificationService(cfg.TableName, cfg.IndexName, *client, marshaler)
	engine := retention.NewEngine(requestRepo, notificationRepo, hosted.NewDefaultClient(), logger)

	var alerter alerts.AlertService
	if cfg.AlertTopicArn != "" {
		alerter = &snsServices.AlertSNSService{
			Sns:      *snsClient.NewFromConfig(awsCfg),
			TopicArn: cfg.AlertTopicArn,
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, func() {
		runSweep(engine, cfg, alerter, logger)
	}); err != nil {
		logger.Fatal("invalid sweep schedule", zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	scheduler.Start()
	logger.Info("sweeper started",
		zap.String("schedule", cfg.Schedule),
		zap.Int("requestDays", cfg.RequestDays),
		zap.Int("notificationDays", cfg.NotificationDays),
	)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.MetricsListenAddr, nil); err != nil {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	ctx := scheduler.Stop()
	<-ctx.Done()
	logger.Info("sweeper stopped")
}
