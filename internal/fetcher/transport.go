package fetcher

import (
	"net/http"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/rclookup/internal/proxy"
)

// NewTransport returns the round tripper used for upstream requests.
// Proxies are chosen per request through proxy.WithProxy. With bypass set,
// the TLS handshake and default headers are shaped like a desktop browser.
func NewTransport(bypass bool) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = proxy.TransportProxy
	if !bypass {
		return t
	}
	return cloudflarebp.AddCloudFlareByPass(t)
}

// restyLogger routes resty's internal messages through zerolog
type restyLogger struct {
	l zerolog.Logger
}

func newRestyLogger(component string) restyLogger {
	return restyLogger{l: log.With().Str("component", component).Logger()}
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
