package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	validSecret   = "test-secret"
	invalidSecret = "wrong-secret"
	userID        = "ops-user"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func tokenFor(t *testing.T, secret string, expiresAt time.Time) string {
	return signed(t, secret, jwt.MapClaims{"sub": userID, "exp": expiresAt.Unix()})
}

func TestAuthInterceptor(t *testing.T) {
	tests := []struct {
		name        string
		fullMethod  string
		token       string
		wantError   bool
		expectedErr codes.Code
	}{
		{
			name:        "run job valid token",
			fullMethod:  RunJobMethod,
			token:       tokenFor(t, validSecret, time.Now().Add(time.Hour)),
			expectedErr: codes.OK,
		},
		{
			name:        "tick invalid token",
			fullMethod:  TickMethod,
			token:       tokenFor(t, invalidSecret, time.Now().Add(time.Hour)),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "run job expired token",
			fullMethod:  RunJobMethod,
			token:       tokenFor(t, validSecret, time.Now().Add(-time.Hour)),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "run job missing metadata",
			fullMethod:  RunJobMethod,
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "list jobs no token",
			fullMethod:  ListJobsMethod,
			expectedErr: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unaryInterceptor := NewAuthInterceptor(validSecret).Unary()

			ctx := context.Background()
			if tt.token != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", "Bearer "+tt.token))
			}

			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				if tt.fullMethod != ListJobsMethod && Subject(ctx) != userID {
					return nil, status.Error(codes.Unauthenticated, "claims not in context")
				}
				return "response", nil
			}

			info := &grpc.UnaryServerInfo{FullMethod: tt.fullMethod}
			resp, err := unaryInterceptor(ctx, nil, info, handler)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.expectedErr {
					t.Errorf("expected error code %v, got %v", tt.expectedErr, status.Code(err))
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if resp != "response" {
				t.Error("handler response mismatch")
			}
		})
	}
}

func TestExtractTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name        string
		metadata    metadata.MD
		wantToken   string
		wantErrCode codes.Code
	}{
		{
			name:        "valid authorization header",
			metadata:    metadata.Pairs("authorization", "Bearer valid-token"),
			wantToken:   "valid-token",
			wantErrCode: codes.OK,
		},
		{
			name:        "missing authorization header",
			metadata:    metadata.MD{},
			wantErrCode: codes.Unauthenticated,
		},
		{
			name:        "malformed authorization header",
			metadata:    metadata.Pairs("authorization", "Basic dXNlcjpwYXNz"),
			wantErrCode: codes.Unauthenticated,
		},
		{
			name:        "empty bearer token",
			metadata:    metadata.Pairs("authorization", "Bearer "),
			wantErrCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractTokenFromMetadata(tt.metadata)

			if tt.wantErrCode != codes.OK {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.wantErrCode {
					t.Errorf("expected error code %v, got %v", tt.wantErrCode, status.Code(err))
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if token != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, token)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	valid := tokenFor(t, validSecret, time.Now().Add(time.Hour))

	tests := []struct {
		name        string
		tokenString string
		secret      string
		wantValid   bool
	}{
		{name: "valid token", tokenString: valid, secret: validSecret, wantValid: true},
		{name: "invalid signature", tokenString: valid, secret: invalidSecret},
		{name: "empty secret", tokenString: valid, secret: ""},
		{name: "expired token", tokenString: tokenFor(t, validSecret, time.Now().Add(-time.Hour)), secret: validSecret},
		{name: "no expiry", tokenString: signed(t, validSecret, jwt.MapClaims{"sub": userID}), secret: validSecret},
		{name: "malformed token", tokenString: "invalid.token.string", secret: validSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validateToken(tt.tokenString, tt.secret)
			if !tt.wantValid {
				if err == nil {
					t.Error("expected invalid token, got no error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid token, got error: %v", err)
			}
			if claims["sub"] != userID {
				t.Error("claims not properly parsed")
			}
		})
	}
}

func TestNewAuthInterceptor(t *testing.T) {
	interceptor := NewAuthInterceptor(validSecret)

	if interceptor.secret != validSecret {
		t.Errorf("expected secret %q, got %q", validSecret, interceptor.secret)
	}
	for _, method := range []string{RunJobMethod, TickMethod} {
		if !interceptor.Guards(method) {
			t.Errorf("method not guarded: %s", method)
		}
	}
	if interceptor.Guards(ListJobsMethod) {
		t.Error("listing jobs must stay public")
	}
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := validateToken(unsigned, validSecret); err == nil {
		t.Error("expected unsigned token to be rejected")
	}
	if _, err := validateToken(tokenFor(t, validSecret, time.Now().Add(time.Hour)), ""); !errors.Is(err, errNoSecret) {
		t.Errorf("expected errNoSecret, got %v", err)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Subject", Subject(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	h := HTTPMiddleware(next, validSecret)

	tests := []struct {
		name        string
		method      string
		path        string
		auth        string
		wantStatus  int
		wantSubject string
	}{
		{name: "list jobs is public", method: http.MethodGet, path: "/v1/jobs", wantStatus: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "run job without token", method: http.MethodPost, path: "/v1/jobs/pay-salaries:run", wantStatus: http.StatusUnauthorized},
		{name: "tick with bad token", method: http.MethodPost, path: "/v1/ticks", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "basic auth rejected", method: http.MethodPost, path: "/v1/ticks", auth: "Basic abc", wantStatus: http.StatusUnauthorized},
		{
			name:        "run job with token",
			method:      http.MethodPost,
			path:        "/v1/jobs/pay-salaries:run",
			auth:        "Bearer " + tokenFor(t, validSecret, time.Now().Add(time.Hour)),
			wantStatus:  http.StatusOK,
			wantSubject: userID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("X-Subject"); got != tt.wantSubject {
				t.Errorf("expected subject %q, got %q", tt.wantSubject, got)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(userID, validSecret, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := validateToken(token, validSecret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims["iss"] != Issuer {
		t.Errorf("expected issuer %q, got %v", Issuer, claims["iss"])
	}

	if _, err := GenerateToken(userID, "", time.Minute); err == nil {
		t.Error("expected error for empty secret")
	}
	expired, err := GenerateToken(userID, validSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := validateToken(expired, validSecret); err == nil {
		t.Error("expected expired token to be rejected")
	}
}
