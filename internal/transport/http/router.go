package http

import (
	"embed"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"quizrush/internal/app"
)

//go:embed web/index.html web/app.js web/app.css
var webFiles embed.FS

// Instruments is the optional metrics surface of the server.
type Instruments interface {
	ConnTracker
	Handler() http.Handler
}

// NewRouter registers the game routes:
//   - /                    → redirects to a new game
//   - /games/:gameid       → HTML client
//   - /games/:gameid/ws    → websocket for that game
//   - /subjects            → selectable subjects
//   - /healthz, /metrics
func NewRouter(service *app.GameService, log *zap.Logger, instruments Instruments) *httprouter.Router {
	if log == nil {
		log = zap.NewNop()
	}
	var conns ConnTracker
	if instruments != nil {
		conns = instruments
	}
	ws := NewWSHandler(service, log, conns)

	mux := httprouter.New()
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Error("handler panic", zap.String("path", r.URL.Path), zap.Any("panic", v))
		securityHeaders(w)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}

	mux.GET("/", redirectNewGame(log))
	mux.GET("/games/:gameid", serveFile("web/index.html", "text/html; charset=utf-8"))
	mux.GET("/games/:gameid/ws", ws.ServeWS)
	mux.GET("/assets/app.js", serveFile("web/app.js", "application/javascript; charset=utf-8"))
	mux.GET("/assets/app.css", serveFile("web/app.css", "text/css; charset=utf-8"))
	mux.GET("/subjects", serveSubjects(service, log))
	mux.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if instruments != nil {
		metrics := instruments.Handler()
		mux.GET("/metrics", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			metrics.ServeHTTP(w, r)
		})
	}
	return mux
}

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
}

// redirectNewGame sends the browser to a freshly generated game URL.
func redirectNewGame(log *zap.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := uuid.NewString()
		log.Info("game created", zap.String("game", gameID))
		http.Redirect(w, r, "/games/"+gameID, http.StatusTemporaryRedirect)
	}
}

func serveFile(name, contentType string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := webFiles.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		securityHeaders(w)
		_, _ = w.Write(data)
	}
}

func serveSubjects(service *app.GameService, log *zap.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		subjects, err := service.Subjects(r.Context())
		if err != nil {
			log.Error("list subjects", zap.Error(err))
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"subjects": subjects})
	}
}
