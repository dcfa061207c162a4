// Package resolver drives the fetch, classify, extract and retry cycle for a plate.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/law-makers/rclookup/internal/cache"
	"github.com/law-makers/rclookup/internal/detect"
	"github.com/law-makers/rclookup/internal/extract"
	"github.com/law-makers/rclookup/internal/fetcher"
	"github.com/law-makers/rclookup/internal/reqctx"
	"github.com/law-makers/rclookup/internal/retry"
	"github.com/law-makers/rclookup/internal/session"
	"github.com/law-makers/rclookup/pkg/models"
)

// Messages returned to callers on failure
const (
	MsgBusy      = "Target site blocking or busy, try again later"
	MsgCancelled = "Lookup cancelled before a result was obtained"
	MsgInvalid   = "Registration number is required"
	MsgInternal  = "Internal error while resolving registration number"
)

// Session is the shared cookie context the resolver warms and invalidates
type Session interface {
	http.CookieJar
	Ensure(ctx context.Context) session.Info
	Invalidate(ctx context.Context)
}

// SleepFunc pauses for d or until ctx ends
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Resolver
type Options struct {
	Session Session
	// Strategies are tried in order; a block escalates to the next one
	Strategies []fetcher.Fetcher
	Rules      detect.Rules
	Fields     []extract.FieldSpec
	// Anchor is the field that must be found for a page to count as a result
	Anchor   string
	Policy   retry.Policy
	Jitter   *retry.Jitter
	Sleep    SleepFunc
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Resolver turns raw plate strings into results. It is safe for concurrent use.
type Resolver struct {
	session    Session
	strategies []fetcher.Fetcher
	rules      detect.Rules
	fields     []extract.FieldSpec
	anchor     string
	policy     retry.Policy
	jitter     *retry.Jitter
	sleep      SleepFunc
	cache      cache.Cache
	cacheTTL   time.Duration
}

// New validates opts and builds a Resolver
func New(opts Options) (*Resolver, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("resolver needs a session store")
	}
	if len(opts.Strategies) == 0 {
		return nil, fmt.Errorf("resolver needs at least one fetch strategy")
	}
	if opts.Fields == nil {
		opts.Fields = extract.Defaults()
	}
	if err := extract.Validate(opts.Fields); err != nil {
		return nil, err
	}
	if opts.Anchor == "" {
		opts.Anchor = extract.AnchorKey
	}
	if !hasKey(opts.Fields, opts.Anchor) {
		return nil, fmt.Errorf("anchor field %q is not in the field list", opts.Anchor)
	}
	if opts.Policy == (retry.Policy{}) {
		opts.Policy = retry.DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Rules.MinBodyLength == 0 && opts.Rules.Markers == nil {
		opts.Rules = detect.DefaultRules()
	}
	if opts.Jitter == nil {
		opts.Jitter = retry.NewJitter()
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}

	return &Resolver{
		session:    opts.Session,
		strategies: opts.Strategies,
		rules:      opts.Rules,
		fields:     opts.Fields,
		anchor:     opts.Anchor,
		policy:     opts.Policy,
		jitter:     opts.Jitter,
		sleep:      opts.Sleep,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
	}, nil
}

func hasKey(specs []extract.FieldSpec, key string) bool {
	for _, s := range specs {
		if s.Key == key {
			return true
		}
	}
	return false
}

// Fields returns the field list records are built from
func (r *Resolver) Fields() []extract.FieldSpec {
	return r.fields
}

// Resolve looks up raw and always returns a well-formed Result
func (r *Resolver) Resolve(ctx context.Context, raw string) models.Result {
	res, _ := r.Lookup(ctx, raw)
	return res
}

// Lookup is Resolve with the terminal failure also returned as an error.
// The error wraps a *LookupError in a reqctx.RequestError carrying the request ID.
func (r *Resolver) Lookup(ctx context.Context, raw string) (res models.Result, err error) {
	ctx = reqctx.WithRequestContext(ctx)
	rc := reqctx.GetRequestContext(ctx)
	logger := reqctx.Logger(ctx)
	q := models.NewPlateQuery(raw)

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Str("plate", q.String()).Msg("Recovered from panic during lookup")
			lerr := NewLookupError(CodeInternal, MsgInternal, fmt.Errorf("panic: %v", p))
			res = failure(q, lerr, res.Attempts)
			err = lerr
		}
		res.RequestID = rc.RequestID
		res.Duration = time.Since(rc.StartTime)
		err = reqctx.NewRequestError(ctx, err)
	}()

	if q.IsZero() {
		lerr := NewLookupError(CodeInvalidInput, MsgInvalid, ErrInvalidPlate)
		return failure(q, lerr, 0), lerr
	}

	if r.cache != nil {
		if rec, ok := r.cache.Get(q); ok {
			logger.Debug().Str("plate", q.String()).Msg("Served from cache")
			return models.Result{Success: true, VehicleNo: q.String(), Data: rec, Cached: true}, nil
		}
	}

	rec, att := r.run(ctx, q, logger)
	if att.State == StateSuccess {
		if r.cache != nil {
			r.cache.Set(q, rec, r.cacheTTL)
			logger.Debug().Str("plate", q.String()).Dur("ttl", r.cacheTTL).Msg("Cached record")
		}
		logger.Info().
			Str("plate", q.String()).
			Int("attempts", att.Count).
			Int("found", rec.Found()).
			Msg("Lookup succeeded")
		return models.Result{
			Success:   true,
			VehicleNo: q.String(),
			Data:      rec,
			Attempts:  att.Count,
			Strategy:  r.strategies[att.Strategy].Name(),
		}, nil
	}

	lerr := classify(att)
	logger.Warn().
		Str("plate", q.String()).
		Int("attempts", att.Count).
		Str("reason", string(att.LastReason)).
		Int("upstream_status", retry.StatusCode(att.LastErr)).
		Err(att.LastErr).
		Msg("Lookup gave up")
	return failure(q, lerr, att.Count), lerr
}

func failure(q models.PlateQuery, lerr *LookupError, attempts int) models.Result {
	return models.Result{
		Success:   false,
		VehicleNo: q.String(),
		Message:   lerr.Message,
		Error:     string(lerr.Code),
		Attempts:  attempts,
	}
}

// classify maps the last failure of a given-up attempt to a LookupError
func classify(att *Attempt) *LookupError {
	lerr := classifyErr(att.LastErr)
	lerr.Attempts = att.Count
	return lerr
}

func classifyErr(err error) *LookupError {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return NewLookupError(CodeCancelled, MsgCancelled, err)
	case errors.Is(err, ErrBlocked):
		return NewLookupError(CodeBlocked, MsgBusy, errors.Join(ErrExhausted, err)).WithRetry()
	case errors.Is(err, ErrAnchorMissing):
		return NewLookupError(CodeNoRecord, MsgBusy, errors.Join(ErrExhausted, err)).WithRetry()
	default:
		return NewLookupError(CodeTransport, MsgBusy, errors.Join(ErrExhausted, err)).WithRetry()
	}
}

// run drives the state machine until it reaches a terminal state
func (r *Resolver) run(ctx context.Context, q models.PlateQuery, logger zerolog.Logger) (models.Record, *Attempt) {
	att := &Attempt{State: StateInit, Max: r.policy.MaxAttempts}
	var rec models.Record

	for !att.State.Terminal() {
		switch att.State {
		case StateInit:
			att.Count = 0
			att.State = StateAttempting

		case StateAttempting:
			if err := ctx.Err(); err != nil {
				att.fail(StateGivingUp, detect.ReasonNone, err)
				continue
			}
			rec = r.attempt(ctx, q, att, logger)

		case StateNeedsRewarm, StateTransientError:
			if ctx.Err() != nil {
				att.fail(StateGivingUp, att.LastReason, ctx.Err())
				continue
			}
			if att.exhausted() {
				att.State = StateGivingUp
				continue
			}

			r.session.Invalidate(ctx)
			if att.State == StateNeedsRewarm && att.Strategy+1 < len(r.strategies) {
				att.Strategy++
				logger.Debug().
					Str("strategy", r.strategies[att.Strategy].Name()).
					Msg("Escalating fetch strategy")
			}

			backoff := r.jitter.Backoff(att.Count+1, r.policy)
			logger.Debug().
				Str("plate", q.String()).
				Int("attempt", att.Count+1).
				Dur("backoff", backoff).
				Str("after", att.State.String()).
				Msg("Retrying")
			if err := r.sleep(ctx, backoff); err != nil {
				att.fail(StateGivingUp, att.LastReason, err)
				continue
			}
			att.State = StateAttempting
		}
	}

	return rec, att
}

// attempt performs one fetch and moves att to the next state
func (r *Resolver) attempt(ctx context.Context, q models.PlateQuery, att *Attempt, logger zerolog.Logger) models.Record {
	if info := r.session.Ensure(ctx); info.Degraded {
		logger.Debug().Err(ErrSessionWarmup).Str("cause", info.Error).Msg("Continuing with degraded session")
	}

	f := r.strategies[att.Strategy]
	att.Count++

	resp, err := f.Fetch(ctx, q, r.session)
	if err != nil {
		logger.Debug().
			Err(err).
			Str("strategy", f.Name()).
			Int("attempt", att.Count).
			Msg("Fetch failed")
		if retry.IsTimeout(err) {
			err = fmt.Errorf("attempt %d timed out: %w", att.Count, err)
		}
		att.fail(StateTransientError, detect.ReasonNone, err)
		return nil
	}

	verdict := detect.Classify(resp.Status, resp.Body, r.rules)
	if !verdict.OK() {
		logger.Debug().
			Str("strategy", f.Name()).
			Int("attempt", att.Count).
			Int("status", resp.Status).
			Int("bytes", len(resp.Body)).
			Str("reason", string(verdict.Reason)).
			Str("detail", verdict.Detail).
			Msg("Response blocked")
		att.fail(StateNeedsRewarm, verdict.Reason, blockCause(verdict, resp))
		return nil
	}

	rec, err := extract.ExtractHTML(resp.Body, r.fields)
	if err != nil {
		att.fail(StateTransientError, detect.ReasonNone, fmt.Errorf("failed to parse HTML: %w", err))
		return nil
	}
	logger.Debug().
		Int("fields", len(r.fields)).
		Int("found", rec.Found()).
		Msg("Extraction completed")
	if rec[r.anchor] == models.NotFound {
		logger.Debug().
			Int("attempt", att.Count).
			Int("found", rec.Found()).
			Msg("Anchor field missing")
		att.fail(StateTransientError, detect.ReasonNone, ErrAnchorMissing)
		return nil
	}

	att.State = StateSuccess
	att.LastErr = nil
	return rec
}

func blockCause(v detect.Verdict, resp *fetcher.Response) error {
	switch {
	case v.Reason == detect.ReasonStatus:
		return fmt.Errorf("%w: %w", ErrBlocked, retry.NewHTTPError(resp.Status, http.StatusText(resp.Status), resp.URL))
	case v.Detail != "":
		return fmt.Errorf("%w: %s (%s)", ErrBlocked, v.Reason, v.Detail)
	default:
		return fmt.Errorf("%w: %s", ErrBlocked, v.Reason)
	}
}
