package services

import (
	"context"
	"log"
	"time"
)

// CacheRefresher keeps the catalog cache warm so ranking requests rarely hit
// the store directly.
type CacheRefresher struct {
	svc      *ChallengeService
	interval time.Duration
}

func NewCacheRefresher(svc *ChallengeService) *CacheRefresher {
	return &CacheRefresher{svc: svc, interval: 5 * time.Minute}
}

func (cr *CacheRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(cr.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := cr.svc.RefreshCatalogCache(ctx); err != nil {
					log.Printf("[CACHE] Failed to refresh challenge catalog: %v", err)
				}
			case <-ctx.Done():
				log.Println("[CACHE] Stopping cache refresher...")
				ticker.Stop()
				return
			}
		}
	}()
}
