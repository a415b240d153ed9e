package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Dependency order:
// 1. Config
// 2. Logger (Config)
// 3. Cache (Config, Logger)
// 4. AuthCache (Config, Cache, Logger)
// 5. Credentials (Config, Logger)
// 6. Strategy (Config, Logger)
// 7. Authenticator (Logger)
// 8. HealthTracker (Config, Logger)
// 9. Transport (all of the above).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCache)
	do.Provide(i, NewAuthCache)
	do.Provide(i, NewCredentials)
	do.Provide(i, NewStrategy)
	do.Provide(i, NewAuthenticator)
	do.Provide(i, NewHealthTracker)
	do.Provide(i, NewTransport)
}
