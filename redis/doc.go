// Package redis wraps go-redis with vidpipe logging, configuration and
// component lifecycle. The queue/redisq backend builds its list-based task
// queue on Client.
//
//	c := redis.NewComponent(cfg.Redis, log)
//	registry.Register(c)
//	// after Start:
//	q := redisq.New(c.Client(), cfg.Queue.RedisKey, log)
package redis
