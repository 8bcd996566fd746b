// Package auth guards the job-admin surface. RunJob and Tick change game
// state and need a signed bearer token; ListJobs and the metrics endpoint
// stay open. The same HS256 tokens are accepted over gRPC and the HTTP
// gateway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Full gRPC method names of the job-admin service.
const (
	RunJobMethod   = "/tycoon.admin.v1.JobService/RunJob"
	TickMethod     = "/tycoon.admin.v1.JobService/Tick"
	ListJobsMethod = "/tycoon.admin.v1.JobService/ListJobs"
)

var errNoSecret = errors.New("token validation not configured")

// Interceptor rejects calls to the state-changing admin methods unless
// they carry a token signed with the operator secret.
type Interceptor struct {
	secret  string
	guarded map[string]struct{}
}

type claimsKey struct{}

func NewAuthInterceptor(secret string) *Interceptor {
	return &Interceptor{
		secret: secret,
		guarded: map[string]struct{}{
			RunJobMethod: {},
			TickMethod:   {},
		},
	}
}

// Guards reports whether fullMethod requires a token.
func (i *Interceptor) Guards(fullMethod string) bool {
	_, ok := i.guarded[fullMethod]
	return ok
}

func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !i.Guards(info.FullMethod) {
			return handler(ctx, req)
		}
		ctx, err := i.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// authenticate attaches the caller's claims to ctx. Every failure maps to
// codes.Unauthenticated.
func (i *Interceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata missing")
	}
	raw, err := extractTokenFromMetadata(md)
	if err != nil {
		return nil, err
	}
	claims, err := validateToken(raw, i.secret)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return withClaims(ctx, claims), nil
}

func withClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// Subject names the operator behind an admin call. Unguarded calls have
// no subject.
func Subject(ctx context.Context) string {
	claims, ok := ctx.Value(claimsKey{}).(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

func extractTokenFromMetadata(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization header missing")
	}
	raw, err := bearerToken(values[0])
	if err != nil {
		return "", status.Error(codes.Unauthenticated, err.Error())
	}
	return raw, nil
}

// bearerToken strips the "Bearer " scheme from an authorization value.
func bearerToken(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid authorization format: missing Bearer prefix")
	}
	if raw == "" {
		return "", errors.New("invalid authorization format: empty token")
	}
	return raw, nil
}

// validateToken accepts only HMAC-signed tokens that carry an expiry.
func validateToken(raw, secret string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, errNoSecret
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
