// Package main (in api-subfolder) provides launch of the lost-and-found application
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/UnendingLoop/LostAndFound/internal/kafka"
	"github.com/UnendingLoop/LostAndFound/internal/mwlogger"
	"github.com/UnendingLoop/LostAndFound/internal/repository"
	"github.com/UnendingLoop/LostAndFound/internal/service"
	"github.com/UnendingLoop/LostAndFound/internal/storage"
	"github.com/UnendingLoop/LostAndFound/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

type eventPublisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	level := appConfig.GetString("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	if err := zlog.SetLevel(level); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// накатываем миграцию
	migrations := appConfig.GetString("MIGRATIONS_PATH")
	if migrations == "" {
		migrations = "./migrations"
	}
	if err := repository.MigrateWithRetries(dbConn.Master, migrations, 10, 15*time.Second); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	// хранилище картинок на локальном диске
	images, err := storage.NewImageStore(appConfig)
	if err != nil {
		log.Fatalf("Failed to init image store: %v", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresItemRepo(dbConn)

	pub := connectPublisher(ctx, appConfig)

	// создаем экземпляр сервиса
	maxUpload := maxUploadBytes(appConfig)
	var svc ItemAPIService = service.NewItemService(repo, pub, images, maxUpload)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewItemHandler(svc, maxUpload)
	// сетапим сервер
	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/items", handlers.Create)                        // создание находки с фото
	engine.GET("/items", handlers.GetAllItems)                    // список с пагинацией и сортировкой
	engine.GET("/items/:id", handlers.GetItem)                    // карточка находки
	engine.PUT("/items/:id/image", handlers.ReplaceImage)         // замена фото
	engine.GET("/items/:id/image", handlers.LoadImage)            // оригинал фото
	engine.GET("/items/:id/thumbs/:size", handlers.LoadThumbnail) // превью
	engine.DELETE("/items/:id", handlers.Delete)                  // удаление

	srv := &http.Server{
		Addr:    ":" + appConfig.GetString("APP_PORT"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия сервера, бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	log.Println("Exiting app...")
}

// connectPublisher returns a kafka producer when KAFKA_BROKER is set and a no-op publisher otherwise.
func connectPublisher(ctx context.Context, appConfig *config.Config) eventPublisher {
	broker := appConfig.GetString("KAFKA_BROKER")
	if broker == "" {
		log.Println("KAFKA_BROKER is empty. Item events will not be published...")
		return NoopPublisher{}
	}

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, broker, 10*time.Second); err != nil {
		log.Fatalf("Kafka never became ready: %v", err)
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	if topic == "" {
		topic = "item-events"
	}
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
		log.Fatalf("Failed to create kafka topic %q: %v", topic, err)
	}
	return wbfkafka.NewProducer([]string{broker}, topic)
}

func maxUploadBytes(appConfig *config.Config) int64 {
	raw := appConfig.GetString("MAX_UPLOAD_MB")
	if raw == "" {
		return service.DefaultMaxUpload
	}
	mb, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || mb <= 0 {
		log.Printf("Invalid MAX_UPLOAD_MB %q. Using default %d bytes...", raw, service.DefaultMaxUpload)
		return service.DefaultMaxUpload
	}
	return mb << 20
}

func shutdown(srv *http.Server, pub eventPublisher, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Failed to shutdown HTTP-server correctly:", err)
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-writer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
