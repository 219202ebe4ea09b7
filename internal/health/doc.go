// Package health serves the liveness and dependency health endpoints.
//
// Liveness only reports that the process is serving. The deep check
// pings every registered dependency concurrently; a failing critical
// dependency makes the service unhealthy (503), a failing non-critical
// one degrades it (200).
//
//	checker := health.NewChecker(cfg.App.Name, cfg.App.Version)
//	checker.Register(health.SQLCheck("postgres", db))
//	checker.Register(health.CacheCheck("redis", redisCache.Ping))
//	checker.RegisterRoutes(router.Group("/api/v1"))
package health
