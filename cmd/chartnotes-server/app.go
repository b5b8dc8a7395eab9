package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/config"
	"github.com/ehr/chartnotes/internal/domain/assessment"
	"github.com/ehr/chartnotes/internal/domain/auditlog"
	"github.com/ehr/chartnotes/internal/domain/condition"
	"github.com/ehr/chartnotes/internal/domain/document"
	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/domain/search"
	"github.com/ehr/chartnotes/internal/domain/terminology"
	"github.com/ehr/chartnotes/internal/domain/user"
	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/blobstore"
	"github.com/ehr/chartnotes/internal/platform/cache"
	"github.com/ehr/chartnotes/internal/platform/db"
	"github.com/ehr/chartnotes/internal/platform/llm"
)

// analysisTemperature keeps MEAT/TAMPER extraction close to deterministic.
const analysisTemperature = 0.3

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: 5 * time.Minute,
	})
}

// app holds the wired services shared by the server and the CLI commands.
type app struct {
	audit       *auditlog.Service
	users       *user.Service
	patients    *patient.Service
	terminology *terminology.Service
	conditions  *condition.Service
	documents   *document.Service
	search      *search.Service
	assessments *assessment.Service

	redis *cache.RedisCache
}

func newApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*app, error) {
	a := &app{}

	a.audit = auditlog.NewService(auditlog.NewRepoPG(pool))
	issuer := auth.NewIssuer(jwtIssuer, cfg.SigningKey(), cfg.JWTTTL)
	a.users = user.NewService(user.NewRepoPG(pool), issuer, a.audit, logger)
	a.patients = patient.NewService(patient.NewRepoPG(pool))

	// Suggestions fall back to the database when Redis is not configured
	// or unreachable.
	var suggestCache cache.JSONCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, "chartnotes:", logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, suggestion cache disabled")
		} else {
			a.redis = rc
			suggestCache = rc
		}
	}
	a.terminology = terminology.NewService(terminology.NewCodeRepoPG(pool), suggestCache, logger)
	a.conditions = condition.NewService(condition.NewRepoPG(pool), a.patients)

	llmClient := llm.NewClient(llm.Config{
		APIKey:          cfg.OpenAIAPIKey,
		Model:           cfg.OpenAIModel,
		TranscribeModel: cfg.OpenAITranscribeModel,
		Temperature:     analysisTemperature,
	}, logger)

	blobs, err := blobstore.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open upload dir: %w", err)
	}
	a.documents = document.NewService(document.NewRepoPG(pool), a.patients,
		document.NewLLMAnalyzer(llmClient), llmClient, blobs, logger)

	a.search = search.NewService(a.patients, a.documents, a.conditions, cfg.SearchMaxQueryLen, logger)

	a.assessments = assessment.NewService(
		assessment.NewToolRepoPG(pool),
		assessment.NewResultRepoPG(pool),
		db.NewTransactor(pool),
		a.patients,
		a.documents,
		assessment.NewLLMExtractor(llmClient),
		a.audit,
		logger,
	)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
