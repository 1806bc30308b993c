package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finco/conversions/bridge"
	l1common "finco/conversions/common"

	log "github.com/sirupsen/logrus"

	"github.com/go-redis/redis/v8"
	redisgo "github.com/gomodule/redigo/redis"
	"github.com/nitishm/go-rejson/v4"
)

// Application Constants
const (
	RedisDbPrefix    = "conversions:"
	RedisStoragePath = "$"
)

// DB Keys
const (
	RouteSupportDBKey = RedisDbPrefix + "routes:"
	QuoteDBKey        = RedisDbPrefix + "quotes:"
)

// to connect to the redis database and return redis client, redis json handler and context.
func RedisClient() (*redis.Client, *rejson.Handler, context.Context) {
	redisHost := l1common.GloabalENVVars.RedisHost
	if redisHost == "" {
		log.Error("Error Reading Redis Host")
	}
	redisPort := l1common.GloabalENVVars.RedisPort
	if redisPort == "" {
		log.Error("Error Reading Redis Port")
	}

	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort)
	redisJson := rejson.NewReJSONHandler()
	op := &redis.Options{Addr: redisAddr, Password: "", WriteTimeout: 5 * time.Second}
	redisClient := redis.NewClient(op)

	ctx := context.Background()
	err := redisClient.Ping(ctx).Err()
	if err != nil {
		log.Error("Error Reading Redis Ping")
	}
	redisJson.SetGoRedisClient(redisClient)
	return redisClient, redisJson, ctx
}

// Store the json data to the redis db by id and data.
func JsonDataStorage(id string, data interface{}) (interface{}, error) {
	redisClient, redisJson, _ := RedisClient()
	defer redisClient.Close()
	res, err := redisJson.JSONSet(QuoteDBKey+id, RedisStoragePath, data)
	return res, err
}

// Get the json data to the redis db by id.
func JsonDataGet(id string) ([]byte, error) {
	redisClient, redisJson, _ := RedisClient()
	defer redisClient.Close()
	res, err := redisJson.JSONGet(QuoteDBKey+id, RedisStoragePath)
	if err != nil {
		return nil, err
	}
	resBytes, errBytes := redisgo.Bytes(res, err)
	if errBytes != nil {
		return nil, errBytes
	}
	return resBytes, nil
}

// RedisRouteCache keeps route support answers hot across requests. The cache
// is advisory: a miss or a dead redis just means the bridge gets asked again.
type RedisRouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{client: client, ttl: ttl}
}

func (c *RedisRouteCache) GetRouteSupport(key string) (bool, bool) {
	raw, err := c.client.Get(context.Background(), RouteSupportDBKey+key).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		log.Warn("route cache read failed: ", err)
		return false, false
	}

	var supported bool
	if err := json.Unmarshal([]byte(raw), &supported); err != nil {
		return false, false
	}
	return supported, true
}

func (c *RedisRouteCache) SetRouteSupport(key string, supported bool) {
	raw, err := json.Marshal(supported)
	if err != nil {
		return
	}
	err = c.client.Set(context.Background(), RouteSupportDBKey+key, raw, c.ttl).Err()
	if err != nil {
		log.Warn("route cache write failed: ", err)
	}
}

// RedisQuoteCache keeps normalized quotes as redis JSON documents for a short
// window. Like the route cache it is advisory: any read or write failure is a
// miss and the bridge gets asked again.
type RedisQuoteCache struct {
	ttl time.Duration
}

func NewRedisQuoteCache(ttl time.Duration) *RedisQuoteCache {
	return &RedisQuoteCache{ttl: ttl}
}

func (c *RedisQuoteCache) GetQuote(key string) (bridge.Quote, bool) {
	raw, err := JsonDataGet(key)
	if err != nil {
		return bridge.Quote{}, false
	}

	// JSON.GET on the root path answers with the document in a one-element
	// array; older server versions answer with the bare document
	var list []bridge.Quote
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], true
	}
	var q bridge.Quote
	if err := json.Unmarshal(raw, &q); err == nil && q.SpokePoolAddress != "" {
		return q, true
	}
	return bridge.Quote{}, false
}

func (c *RedisQuoteCache) SetQuote(key string, q bridge.Quote) {
	if _, err := JsonDataStorage(key, q); err != nil {
		log.Warn("quote cache write failed: ", err)
		return
	}

	redisClient, _, ctx := RedisClient()
	defer redisClient.Close()
	if err := redisClient.Expire(ctx, QuoteDBKey+key, c.ttl).Err(); err != nil {
		log.Warn("quote cache expiry write failed: ", err)
	}
}
