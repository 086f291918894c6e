package controllers

import (
	"sync"

	"github.com/JonasWehrle/StagePass/internal/pkg/database"
	"github.com/JonasWehrle/StagePass/internal/pkg/entitlements"
	"github.com/JonasWehrle/StagePass/internal/pkg/env"
	"github.com/JonasWehrle/StagePass/internal/pkg/grants"
	"github.com/JonasWehrle/StagePass/internal/pkg/payments"
	"github.com/JonasWehrle/StagePass/internal/pkg/providers"
	"github.com/JonasWehrle/StagePass/internal/pkg/rolecache"
	"github.com/JonasWehrle/StagePass/internal/pkg/streams"
)

// Shared service singletons. Built lazily so tests can exercise handlers
// through injected services instead.
var (
	servicesOnce   sync.Once
	resolverSvc    *entitlements.Resolver
	ledgerSvc      *grants.Service
	streamsSvc     *streams.Service
	paymentsSvc    *payments.Service
	videoProvider  providers.VideoRoomProvider
	chatProvider   providers.ChatRoomProvider
)

func initServices() {
	servicesOnce.Do(func() {
		db := database.GetDB()
		roles := rolecache.New()

		videoProvider = providers.NoopVideoProvider{}
		chatProvider = providers.NoopChatProvider{}

		resolverSvc = entitlements.NewResolver(entitlements.NewRepository(db), roles)
		ledgerSvc = grants.NewService(grants.NewRepository(db), roles, grants.DefaultPolicy())
		streamsSvc = streams.NewService(streams.NewRepository(db), resolverSvc, videoProvider, chatProvider)
		paymentsSvc = payments.NewService(payments.NewRepository(db), ledgerSvc, env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""))
	})
}

func getResolver() *entitlements.Resolver {
	initServices()
	return resolverSvc
}

func getLedger() *grants.Service {
	initServices()
	return ledgerSvc
}

func getStreams() *streams.Service {
	initServices()
	return streamsSvc
}

func getPayments() *payments.Service {
	initServices()
	return paymentsSvc
}
