// Package clearchatrest serves the room availability and claim endpoints used
// by the brochure site.
package clearchatrest

import (
	"fmt"
	"net/http"

	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
)

func Middlewares(logger zerolog.Logger, routes chi.Router) chi.Router {
	routes.Use(
		middleware.RealIP,
		withCORS(),
		withLogger(logger),
		middleware.Recoverer,
	)
	return routes
}

// Webserver listens on --port in console mode and otherwise hands the router
// to the Lambda runtime.
func Webserver(logger zerolog.Logger, routes http.Handler) error {
	if clearchatcli.CommonOpts.Console {
		logger.Info().Int("port", clearchatcli.CommonOpts.Port).Msg("starting http server")
		addr := fmt.Sprintf(":%v", clearchatcli.CommonOpts.Port)
		return http.ListenAndServe(addr, routes)
	}

	lambda.Start(apigateway.Wrap(routes, clearchatcli.CommonOpts.Env))
	return nil
}

func withCORS() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logger.With().Str("path", req.URL.Path).Logger().WithContext(req.Context())
			req = req.WithContext(ctx)
			handler.ServeHTTP(w, req)
		})
	}
}
