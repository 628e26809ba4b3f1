// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/hearthsocial/hearth/internal/app/system/realtime"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Redis and NATS are nil when not configured.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         *redis.Client
	NATS          *realtime.NATSBridge

	// Services is filled by Startup and shared by BuildHandler and Shutdown.
	Services *Services
}
