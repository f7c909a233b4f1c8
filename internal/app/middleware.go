package app

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/klokku/scheduler/internal/rest"
	"github.com/klokku/scheduler/pkg/user"
	log "github.com/sirupsen/logrus"
)

const userIdHeader = "X-User-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router) {
	r.Use(requestLogging)
	r.Use(propagateUserId)
}

// propagateUserId puts the numeric X-User-Id header into the request context.
// Requests without the header carry no user and are refused by the handlers.
func propagateUserId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get(userIdHeader)
		if header == "" {
			next.ServeHTTP(w, req)
			return
		}

		userId, err := strconv.Atoi(header)
		if err != nil || userId <= 0 {
			log.Debugf("invalid user id header: %q", header)
			rest.WriteError(w, http.StatusBadRequest, "Invalid user id", userIdHeader+" must be a positive number")
			return
		}
		next.ServeHTTP(w, req.WithContext(user.WithId(req.Context(), userId)))
	})
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.Tracef("%s %s", req.Method, req.URL.Path)
		next.ServeHTTP(w, req)
	})
}
