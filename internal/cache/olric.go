package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/olric-data/olric"
	olricconfig "github.com/olric-data/olric/config"
	"github.com/rs/zerolog"
)

const (
	olricStartTimeout = 10 * time.Second
	olricPingKey      = "__authneg_ping__"
)

// splitBindAddr splits "host:port" or a bare host; the port is 0 if absent.
func splitBindAddr(addr string) (host string, port int) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return h, 0
	}
	return h, port
}

// olricCache runs either an embedded node (db set) or a cluster client.
type olricCache struct {
	db     *olric.Olric
	client olric.Client
	dmap   olric.DMap
	log    zerolog.Logger
	lifecycle
}

var (
	_ Cache         = (*olricCache)(nil)
	_ StatsProvider = (*olricCache)(nil)
	_ Pinger        = (*olricCache)(nil)
)

func newOlricCache(ctx context.Context, cfg *OlricConfig) (*olricCache, error) {
	lg := logger().With().Str("backend", "olric").Logger()

	dmapName := cfg.DMapName
	if dmapName == "" {
		dmapName = DefaultDMapName
	}

	if cfg.Embedded {
		return startEmbeddedOlric(ctx, cfg, dmapName, lg)
	}
	return dialOlricCluster(ctx, cfg, dmapName, lg)
}

func embeddedOlricConfig(cfg *OlricConfig) *olricconfig.Config {
	env := cfg.Environment
	if env == "" {
		env = "local"
	}
	c := olricconfig.New(env)

	host, port := splitBindAddr(cfg.BindAddr)
	c.BindAddr = host
	if port > 0 {
		c.BindPort = port
	}
	if len(cfg.Peers) > 0 {
		c.Peers = cfg.Peers
	}
	if cfg.ReplicaCount > 0 {
		c.ReplicaCount = cfg.ReplicaCount
	}
	if cfg.ReadQuorum > 0 {
		c.ReadQuorum = cfg.ReadQuorum
	}
	if cfg.WriteQuorum > 0 {
		c.WriteQuorum = cfg.WriteQuorum
	}
	if cfg.MemberCountQuorum > 0 {
		c.MemberCountQuorum = cfg.MemberCountQuorum
	}
	if cfg.LeaveTimeout > 0 {
		c.LeaveTimeout = cfg.LeaveTimeout
	}

	c.LogOutput = io.Discard
	c.Logger = log.New(io.Discard, "", 0)
	return c
}

func startEmbeddedOlric(ctx context.Context, cfg *OlricConfig, dmapName string, lg zerolog.Logger) (*olricCache, error) {
	c := embeddedOlricConfig(cfg)

	// Started must be set before olric.New.
	ready := make(chan struct{})
	c.Started = func() { close(ready) }

	db, err := olric.New(c)
	if err != nil {
		lg.Error().Err(err).Msg("olric: failed to create embedded node")
		return nil, err
	}

	startErr := make(chan error, 1)
	go func() {
		if err := db.Start(); err != nil {
			startErr <- err
		}
	}()

	startCtx, cancel := context.WithTimeout(ctx, olricStartTimeout)
	defer cancel()

	select {
	case <-ready:
	case err := <-startErr:
		lg.Error().Err(err).Msg("olric: embedded node failed to start")
		return nil, err
	case <-startCtx.Done():
		lg.Warn().Msg("olric: embedded node not ready before timeout, proceeding")
	}

	client := db.NewEmbeddedClient()
	dm, err := client.NewDMap(dmapName)
	if err != nil {
		lg.Error().Err(err).Str("dmap", dmapName).Msg("olric: failed to create dmap")
		if shutdownErr := db.Shutdown(context.Background()); shutdownErr != nil {
			lg.Error().Err(shutdownErr).Msg("olric: shutdown after dmap error failed")
		}
		return nil, err
	}

	lg.Debug().
		Str("bind_addr", c.BindAddr).
		Int("bind_port", c.BindPort).
		Str("dmap", dmapName).
		Int("peers", len(cfg.Peers)).
		Msg("olric embedded node ready")

	return &olricCache{db: db, client: client, dmap: dm, log: lg}, nil
}

func dialOlricCluster(ctx context.Context, cfg *OlricConfig, dmapName string, lg zerolog.Logger) (*olricCache, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("cache: olric addresses required for client mode")
	}

	client, err := olric.NewClusterClient(cfg.Addresses)
	if err != nil {
		lg.Error().Err(err).Strs("addresses", cfg.Addresses).Msg("olric: failed to connect to cluster")
		return nil, err
	}

	dm, err := client.NewDMap(dmapName)
	if err != nil {
		lg.Error().Err(err).Str("dmap", dmapName).Msg("olric: failed to create dmap")
		if closeErr := client.Close(ctx); closeErr != nil {
			lg.Error().Err(closeErr).Msg("olric: close after dmap error failed")
		}
		return nil, err
	}

	lg.Debug().Strs("addresses", cfg.Addresses).Str("dmap", dmapName).Msg("olric cluster client ready")
	return &olricCache{client: client, dmap: dm, log: lg}, nil
}

func (o *olricCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := o.enter(ctx); err != nil {
		return nil, err
	}
	defer o.leave()

	resp, err := o.dmap.Get(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		o.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}
	if err != nil {
		o.log.Debug().Str("key", key).Err(err).Msg("cache get error")
		return nil, err
	}

	value, err := resp.Byte()
	if err != nil {
		return nil, err
	}
	o.log.Debug().Str("key", key).Bool("hit", true).Msg("cache get")
	return cloneBytes(value), nil
}

func (o *olricCache) Set(ctx context.Context, key string, value []byte) error {
	return o.SetWithTTL(ctx, key, value, 0)
}

func (o *olricCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := o.enter(ctx); err != nil {
		return err
	}
	defer o.leave()

	var opts []olric.PutOption
	if ttl > 0 {
		opts = append(opts, olric.EX(ttl))
	}
	if err := o.dmap.Put(ctx, key, cloneBytes(value), opts...); err != nil {
		o.log.Debug().Str("key", key).Err(err).Msg("cache set error")
		return err
	}
	o.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

func (o *olricCache) Delete(ctx context.Context, key string) error {
	if err := o.enter(ctx); err != nil {
		return err
	}
	defer o.leave()

	_, err := o.dmap.Delete(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Ping reads from the map; a miss still proves the cluster answers.
func (o *olricCache) Ping(ctx context.Context) error {
	if err := o.enter(ctx); err != nil {
		return err
	}
	defer o.leave()

	_, err := o.dmap.Get(ctx, olricPingKey)
	if err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Stats is empty: Olric reports per-member statistics, not per-map counters.
func (o *olricCache) Stats() Stats {
	return Stats{}
}

func (o *olricCache) Close() error {
	closed, err := o.shutdown(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), olricStartTimeout)
		defer cancel()

		if err := o.dmap.Close(ctx); err != nil {
			o.log.Debug().Err(err).Msg("olric: dmap close failed")
		}
		if o.db != nil {
			return o.db.Shutdown(ctx)
		}
		return o.client.Close(ctx)
	})
	if closed {
		o.log.Debug().Msg("olric cache closed")
	}
	return err
}
