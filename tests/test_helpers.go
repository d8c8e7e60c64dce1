package tests

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mediadepot/api/internal/domain"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupTestDB spins up a fresh MongoDB container and returns the database connection
// along with a cleanup function.
func SetupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongodbContainer, err := mongodb.Run(ctx, "mongo:latest")
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	endpoint, err := mongodbContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	return mongoClient.Database("test_db"), func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Printf("failed to disconnect mongo: %v", err)
		}
		if err := mongodbContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	}
}

// LocalS3 is an in-process S3-compatible backend: enough of the REST
// surface (path-style PUT/GET/DELETE object) for the real SDK client to
// talk to over loopback.
type LocalS3 struct {
	Server *httptest.Server

	mu      sync.Mutex
	objects map[string][]byte
}

// StartLocalS3 starts the backend; Close it via ls.Server.Close().
func StartLocalS3() *LocalS3 {
	ls := &LocalS3{objects: make(map[string][]byte)}
	ls.Server = httptest.NewServer(http.HandlerFunc(ls.handle))
	return ls
}

// Objects returns a snapshot of currently stored keys (bucket-prefixed)
func (ls *LocalS3) Objects() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	keys := make([]string, 0, len(ls.objects))
	for k := range ls.objects {
		keys = append(keys, k)
	}
	return keys
}

func (ls *LocalS3) handle(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	ls.mu.Lock()
	defer ls.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body := make([]byte, 0)
		if r.Body != nil {
			buf := make([]byte, 32*1024)
			for {
				n, err := r.Body.Read(buf)
				body = append(body, buf[:n]...)
				if err != nil {
					break
				}
			}
		}
		ls.objects[key] = body
		w.Header().Set("ETag", `"local-etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		obj, ok := ls.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(obj)
	case http.MethodDelete:
		delete(ls.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// MintToken signs a short-lived bearer token with the given roles
func MintToken(t *testing.T, secret string, roles ...string) string {
	claims := &domain.APIClaims{
		UserID: "test-user",
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}
