package main

import (
	"context"
	"time"

	"github.com/cppla/postfeed/config"
	"github.com/cppla/postfeed/controllers"
	"github.com/cppla/postfeed/repositories"
	"github.com/cppla/postfeed/routes"
	"github.com/cppla/postfeed/services"
	"github.com/cppla/postfeed/utils"
)

type stores struct {
	posts         repositories.PostRepository
	notifications repositories.NotificationRepository
	connections   repositories.ConnectionRepository
	pendingAssets repositories.AssetDeletionRepository
	close         func(ctx context.Context)
}

func openStores(cfg config.AppConfig) stores {
	if cfg.DBDriver == "mongo" {
		client, db := config.InitMongo(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := config.EnsureMongoIndexes(ctx, db); err != nil {
			utils.Sugar.Fatalf("failed to ensure mongo indexes: %v", err)
		}
		return stores{
			posts:         repositories.NewMongoPostRepository(db),
			notifications: repositories.NewMongoNotificationRepository(db),
			connections:   repositories.NewMongoConnectionRepository(db),
			pendingAssets: repositories.NewMongoAssetDeletionRepository(db),
			close: func(ctx context.Context) {
				_ = client.Disconnect(ctx)
			},
		}
	}

	db := config.InitDatabase(cfg)
	return stores{
		posts:         repositories.NewGormPostRepository(db),
		notifications: repositories.NewGormNotificationRepository(db),
		connections:   repositories.NewGormConnectionRepository(db),
		pendingAssets: repositories.NewGormAssetDeletionRepository(db),
		close: func(context.Context) {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	st := openStores(cfg)

	var cache utils.Cache = utils.NopCache{}
	if rc, err := utils.NewRedis(cfg); err != nil {
		utils.Sugar.Warnw("redis unavailable, running without cache", "err", err)
		_ = rc.Close()
	} else {
		cache = utils.NewRedisCache(rc)
	}

	var mailer services.CommentMailer
	if m := utils.NewMailer(cfg); m.Enabled() {
		mailer = m
	} else {
		utils.Sugar.Info("smtp not configured, comment emails disabled")
	}

	var sentiment services.SentimentAnalyzer
	if sc := utils.NewSentimentClient(cfg.SentimentURL, cfg.SentimentToken, cfg.SentimentTimeout(), cache, time.Duration(cfg.SentimentCacheMinutes)*time.Minute); sc != nil {
		sentiment = sc
	}

	assets := utils.NewAssetStore(cfg)
	svc := services.NewEngagementService(services.Deps{
		Posts:         st.posts,
		Notifications: st.notifications,
		Connections:   st.connections,
		PendingAssets: st.pendingAssets,
		Assets:        assets,
		Sentiment:     sentiment,
		Mailer:        mailer,
	}, services.Options{PublicBaseURL: cfg.PublicBaseURL})

	cleanerCtx, stopCleaner := context.WithCancel(context.Background())
	defer stopCleaner()
	utils.StartAssetCleaner(cleanerCtx, st.pendingAssets, assets, time.Duration(cfg.AssetsCleanupIntervalSec)*time.Second)

	r := routes.SetupRouter(cfg, controllers.NewPostController(svc, cache))

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err := utils.GraceServer(":"+cfg.AppPort, r, func(ctx context.Context) {
		stopCleaner()
		if err := svc.Wait(ctx); err != nil {
			utils.Sugar.Warnw("background tasks still running at shutdown", "err", err)
		}
		st.close(ctx)
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
