package servicebus

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	cbus "github.com/next-trace/scg-product-service/contract/bus"
)

// Logging returns middleware that traces every subscriber invocation at debug level.
// The logger stored in ctx (zerolog.Ctx) takes precedence so request fields carry over.
func Logging(logger *zerolog.Logger) Middleware {
	return func(next cbus.HandlerFunc) cbus.HandlerFunc {
		return func(ctx context.Context, e cbus.Event) error {
			l := logger
			if cl := zerolog.Ctx(ctx); cl.GetLevel() != zerolog.Disabled {
				l = cl
			}

			start := time.Now()
			err := next(ctx, e)

			l.Debug().
				Str("kind", string(e.Kind())).
				Dur("duration", time.Since(start)).
				AnErr("error", err).
				Msg("event delivered")

			return err
		}
	}
}
