package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"census-pipeline/cmd"
	"census-pipeline/internal/config"
	"census-pipeline/internal/database"
	"census-pipeline/internal/messaging"
	"census-pipeline/internal/pipeline"
	"census-pipeline/internal/storage"
	"census-pipeline/internal/tracking"
	"census-pipeline/internal/warehouse"

	"github.com/caarlos0/env/v11"
)

type WorkerConfig struct {
	DatabaseURL       string `env:"DATABASE_URL,notEmpty,required"`
	WarehouseURL      string `env:"WAREHOUSE_URL,notEmpty,required"`
	RabbitMQURL       string `env:"RABBITMQ_URL,notEmpty,required"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	DataBucketName    string `env:"DATA_BUCKET_NAME" envDefault:"pipeline-data"`
	TrackingURI       string `env:"MLFLOW_TRACKING_URI,notEmpty,required"`
	ParamsFile        string `env:"PARAMS_FILE"`
	ScratchDir        string `env:"SCRATCH_DIR" envDefault:"/tmp/census-pipeline"`
	WorkerConcurrency int    `env:"CONCURRENCY" envDefault:"1"`
}

func main() {
	log.Println("Starting Pipeline Worker...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	warehouseDB, err := warehouse.Open(cfg.WarehouseURL)
	if err != nil {
		log.Fatalf("Failed to connect to warehouse: %v", err)
	}

	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.CreateBucket(ctx, cfg.DataBucketName); err != nil {
		log.Fatalf("Failed to create data bucket: %v", err)
	}

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		log.Fatalf("Failed to load boosting params: %v", err)
	}

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer receiver.Close()

	runner := pipeline.NewRunner(
		db,
		warehouse.NewLoader(warehouseDB),
		store,
		cfg.DataBucketName,
		tracking.NewClient(cfg.TrackingURI),
		params,
		cfg.ScratchDir,
	)

	worker := messaging.Worker{
		Receiver:    receiver,
		Executor:    runner,
		Concurrency: cfg.WorkerConcurrency,
	}

	var wg sync.WaitGroup
	worker.Start(ctx, &wg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down worker...")
		receiver.Close()
		cancel()
	}()

	wg.Wait()
	log.Println("Worker stopped.")
}
