package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// KeepAlive pings a URL on a cron schedule so hosted instances are not idled out
type KeepAlive struct {
	url    string
	client *resty.Client
	cron   *cron.Cron
}

// NewKeepAlive registers a ping of url on schedule (standard cron or @every syntax).
// Nothing runs until Start.
func NewKeepAlive(url, schedule string) (*KeepAlive, error) {
	k := &KeepAlive{
		url:    url,
		client: resty.New().SetTimeout(10 * time.Second),
		cron:   cron.New(cron.WithLogger(cronLogger{})),
	}
	if _, err := k.cron.AddFunc(schedule, k.ping); err != nil {
		return nil, fmt.Errorf("invalid keep-alive schedule %q: %w", schedule, err)
	}
	return k, nil
}

// Start begins the schedule in the background
func (k *KeepAlive) Start() {
	k.cron.Start()
	log.Info().Str("url", k.url).Msg("Keep-alive scheduled")
}

// Stop halts the schedule and waits for a running ping or ctx, whichever ends first
func (k *KeepAlive) Stop(ctx context.Context) {
	done := k.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (k *KeepAlive) ping() {
	resp, err := k.client.R().Get(k.url)
	if err != nil {
		log.Debug().Err(err).Str("url", k.url).Msg("Keep-alive ping failed")
		return
	}
	log.Debug().Int("status", resp.StatusCode()).Str("url", k.url).Msg("Keep-alive ping")
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msgf("cron: %s", msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msgf("cron: %s", msg)
}
