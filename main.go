package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"skyhub/config"
	"skyhub/feeds"
	"skyhub/models"
	"skyhub/services"
	"skyhub/storage"
	"skyhub/tns"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var vocabRefreshCounter prometheus.Counter

func init() {
	vocabRefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vocabulary_refreshes_total",
			Help: "Total number of successful vocabulary cache refreshes.",
		},
	)
	prometheus.MustRegister(vocabRefreshCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to alert database.")

	logging.Info("Running database auto-migration...")
	if err := models.Migrate(db); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Services
	ingestService := services.NewIngestService(db, logging)
	vocabCache := tns.NewVocabularyCache(cfg.TNSBaseURL, logging)
	converter := tns.NewConverter(vocabCache)
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupMessageRoutes(router, db, logging)
	setupEventRoutes(router, db, logging)
	setupTargetRoutes(router, db, logging)
	setupIngestRoutes(router, ingestService, logging)
	setupSubmissionRoutes(router, converter, s3Client, cfg, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.VocabRefreshSchedule, func() {
		logging.Info("Running scheduled vocabulary refresh...")
		if err := vocabCache.Refresh(); err != nil {
			logging.Error("Vocabulary refresh failed", zap.Error(err))
		} else {
			vocabRefreshCounter.Inc()
		}
	})
	cronScheduler.Start()

	// Setup Feed Consumer
	consumer := feeds.NewConsumer(cfg.NATSURL, cfg.Subjects(), ingestService, logging)
	if err := consumer.Start(); err != nil {
		logging.Fatal("Feed consumer start failed", zap.Error(err))
	}
	defer consumer.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupMessageRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/messages")

	rg.GET("/", func(c *gin.Context) {
		query := db.Order("published DESC")
		if topic := c.Query("topic"); topic != "" {
			query = query.Where("topic = ?", topic)
		}
		if parser := c.Query("parser"); parser != "" {
			query = query.Where("message_parser = ?", parser)
		}
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		var messages []models.Message
		if err := query.Limit(limit).Find(&messages).Error; err != nil {
			log.Error("Database query for messages failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, messages)
	})

	rg.GET("/:uuid", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("uuid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message uuid"})
			return
		}
		var message models.Message
		err = db.Preload("Targets").First(&message, "uuid = ?", id).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusOK, message)
	})

	rg.GET("/:uuid/plaintext", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("uuid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message uuid"})
			return
		}
		var message models.Message
		if err := db.First(&message, "uuid = ?", id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.String(http.StatusOK, services.RenderPlaintext(&message))
	})
}

func setupEventRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/events")

	rg.GET("/", func(c *gin.Context) {
		query := db.Order("created_at DESC")
		if eventType := c.Query("event_type"); eventType != "" {
			query = query.Where("event_type = ?", eventType)
		}
		var events []models.NonLocalizedEvent
		if err := query.Find(&events).Error; err != nil {
			log.Error("Database query for events failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, events)
	})

	rg.GET("/:event_id", func(c *gin.Context) {
		var event models.NonLocalizedEvent
		err := db.Preload("Sequences", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_number ASC")
		}).Preload("References").First(&event, "event_id = ?", c.Param("event_id")).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusOK, event)
	})
}

func setupTargetRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/targets")

	rg.GET("/", func(c *gin.Context) {
		query := db.Order("created_at DESC")
		if name := c.Query("name"); name != "" {
			query = query.Where("name = ?", name)
		}
		var targets []models.Target
		if err := query.Find(&targets).Error; err != nil {
			log.Error("Database query for targets failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, targets)
	})
}

func setupIngestRoutes(router *gin.Engine, ingest *services.IngestService, log *zap.Logger) {
	router.POST("/ingest", func(c *gin.Context) {
		var req struct {
			Topic       string          `json:"topic" binding:"required"`
			Title       string          `json:"title"`
			MessageText string          `json:"message_text"`
			Data        json.RawMessage `json:"data"`
			Submitter   string          `json:"submitter"`
			Authors     string          `json:"authors"`
			Published   *time.Time      `json:"published"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		alert := services.Alert{
			Topic:       req.Topic,
			Title:       req.Title,
			MessageText: req.MessageText,
			Data:        req.Data,
			Submitter:   req.Submitter,
			Authors:     req.Authors,
		}
		if req.Published != nil {
			alert.Published = *req.Published
		}
		message, created, err := ingest.Ingest(alert)
		if err != nil {
			if errors.Is(err, services.ErrTopicIgnored) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			log.Error("Ingest via API failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"uuid":    message.UUID,
			"created": created,
			"parsed":  message.MessageParser != "",
		})
	})
}

func setupSubmissionRoutes(router *gin.Engine, converter *tns.Converter, s3Client *s3.Client, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/submissions")

	rg.POST("/convert", func(c *gin.Context) {
		var req struct {
			Message  tns.SubmissionMessage `json:"message" binding:"required"`
			FileURLs map[string]string     `json:"file_urls"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, fieldErrors := converter.ConvertDiscovery(&req.Message, req.FileURLs)
		if fieldErrors != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrors})
			return
		}
		c.JSON(http.StatusOK, gin.H{"at_report": report})
	})

	rg.POST("/attachments", func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file could not be read"})
			return
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file could not be read"})
			return
		}
		key := "attachments/" + uuid.New().String() + "-" + file.Filename
		url, err := storage.UploadAttachment(c.Request.Context(), s3Client, cfg, key, data)
		if err != nil {
			log.Error("Attachment upload failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": file.Filename, "url": url})
	})
}
