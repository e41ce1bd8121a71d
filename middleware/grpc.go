// Package middleware plugs the edge-security components into the request
// path. It is the enforcement point the limiter itself deliberately lacks:
// the limiter marks, the interceptor denies.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcmd "google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/supra126/open-short-url-sub003/apikey"
	"github.com/supra126/open-short-url-sub003/limiter"
	"github.com/supra126/open-short-url-sub003/meta"
)

// Metadata keys checked for the bearer credential.
const (
	apiKeyHeader = "x-api-key"
	authHeader   = "authorization"
	bearerPrefix = "Bearer "
)

// Options tunes the interceptor.
type Options struct {
	// WindowTTL is the throttle window per key. Defaults to one minute.
	WindowTTL time.Duration
	// Limit is the allowed hits per window. Defaults to 100.
	Limit int64
	// BlockDuration extends denial past the window once the limit is
	// exceeded. Zero means no extra block.
	BlockDuration time.Duration
	// RequireAuth rejects requests that carry no API key at all. Without
	// it, anonymous requests pass authentication and are throttled by
	// client address instead of owner.
	RequireAuth bool
}

// UnaryServerInterceptor authenticates the request's API key (when present),
// stores the resolved identity in the context metadata, and throttles per
// identity and method. All authentication failures collapse into one
// Unauthenticated outcome.
func UnaryServerInterceptor(auth *apikey.Service, lim *limiter.HybridLimiter, opts Options) grpc.UnaryServerInterceptor {
	window := opts.WindowTTL
	if window <= 0 {
		window = time.Minute
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md := meta.New()
		md.SetRoute(info.FullMethod)
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			md.SetClientIP(p.Addr.String())
		}

		rawKey := apiKeyFromContext(ctx)
		switch {
		case rawKey != "" && auth != nil:
			id := auth.Validate(ctx, rawKey)
			if id == nil {
				log.Debug().Str("method", info.FullMethod).Msg("request rejected, invalid api key")
				return nil, status.Error(codes.Unauthenticated, "invalid api key")
			}
			md.SetIdentity(id)
		case opts.RequireAuth:
			return nil, status.Error(codes.Unauthenticated, "api key required")
		}

		if lim != nil {
			res := lim.Increment(ctx, md.ThrottleKey(), window, limit, opts.BlockDuration)
			if res.IsBlocked {
				log.Debug().Str("method", info.FullMethod).Str("key", md.ThrottleKey()).Int64("hits", res.TotalHits).Msg("request throttled")
				return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
			}
		}

		return handler(md.WithContext(ctx), req)
	}
}

// apiKeyFromContext pulls the raw credential from the incoming gRPC
// metadata: x-api-key first, then an authorization bearer token.
func apiKeyFromContext(ctx context.Context) string {
	md, ok := grpcmd.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(apiKeyHeader); len(values) > 0 && values[0] != "" {
		return values[0]
	}
	if values := md.Get(authHeader); len(values) > 0 && strings.HasPrefix(values[0], bearerPrefix) {
		return strings.TrimPrefix(values[0], bearerPrefix)
	}
	return ""
}
