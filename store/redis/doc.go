// Package redis stores docchat session histories in Redis.
//
// Each session is a list at "<prefix>history:<session id>" holding one JSON
// message per element. With a TTL configured, every write pushes the
// expiration forward, so idle sessions disappear on their own.
package redis
