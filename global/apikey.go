package global

import (
	"sync/atomic"

	"github.com/supra126/open-short-url-sub003/apikey"
)

var globalAuthenticator = &atomic.Value{}

// SetAuthenticator sets the process-default API key service.
func SetAuthenticator(s *apikey.Service) {
	globalAuthenticator.Store(s)
}

// GetAuthenticator retrieves the process-default API key service, or nil if
// none has been set (the authenticator needs a repository, so there is no
// usable zero default).
func GetAuthenticator() *apikey.Service {
	s, _ := globalAuthenticator.Load().(*apikey.Service)
	return s
}
