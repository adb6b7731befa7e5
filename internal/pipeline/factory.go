package pipeline

import (
	"fmt"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/platforms"
	"callscore_backend/internal/platforms/gong"
	"callscore_backend/internal/platforms/salesloft"
	"callscore_backend/platform/logger"
)

// NewAdapterFactory returns the factory used by the orchestrator to build a
// platform client for one credential. Salesloft receives the refresh
// callback; gong authenticates with static keys and never refreshes.
func NewAdapterFactory(log *logger.Logger) AdapterFactory {
	return func(cred credentials.Credential, refresh platforms.RefreshFunc) (platforms.Adapter, error) {
		switch cred.Platform {
		case credentials.PlatformSalesloft:
			return salesloft.New(cred.BaseURL, cred.AccessToken, refresh, log), nil
		case credentials.PlatformGong:
			return gong.New(cred.BaseURL, cred.AccessKey, cred.SecretKey, log), nil
		default:
			return nil, fmt.Errorf("unsupported platform %q", cred.Platform)
		}
	}
}
