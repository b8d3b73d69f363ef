package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/court"
	"github.com/opencourts/pleaflow-go/forms"
	"github.com/opencourts/pleaflow-go/notify"
	"github.com/opencourts/pleaflow-go/plea"
	"github.com/opencourts/pleaflow-go/session"
)

const journeyCookie = "journey_id"

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		courtsPath = flag.String("courts", "courts.yaml", "path to the court register")
		dsn        = flag.String("dsn", "", "postgres DSN for durable sessions (in-memory when empty)")
		amqpURL    = flag.String("amqp", "", "AMQP broker URL for plea submissions (log-only when empty)")
		queue      = flag.String("queue", "plea.submissions", "submission queue name")
		sessionTTL = flag.Duration("session-ttl", 24*time.Hour, "journey expiry for the postgres store")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	register, err := court.Load(*courtsPath)
	if err != nil {
		logger.Error("failed to load court register", "path", *courtsPath, "error", err)
		os.Exit(1)
	}

	var store session.Store
	if *dsn != "" {
		pg, err := session.OpenPostgresStore(ctx, *dsn)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		go sweepExpired(ctx, pg, *sessionTTL, logger)
		store = pg
	} else {
		store = session.NewMemoryStore()
	}

	var submitter notify.Submitter = &notify.LogSubmitter{Logger: logger}
	if *amqpURL != "" {
		conn, err := amqp.Dial(*amqpURL)
		if err != nil {
			logger.Error("failed to connect to broker", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Error("failed to open channel", "error", err)
			os.Exit(1)
		}
		if err := notify.DeclareQueue(ch, *queue); err != nil {
			logger.Error("failed to declare queue", "error", err)
			os.Exit(1)
		}
		submitter = notify.NewAMQPSubmitter(ch, *queue, notify.WithSubmitterLogger(logger))
	}

	graph := plea.NewGraph(register, submitter)
	srv := &server{graph: graph, store: store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /plea/{stage}", srv.load)
	mux.HandleFunc("GET /plea/{stage}/{index}", srv.load)
	mux.HandleFunc("POST /plea/{stage}", srv.save)
	mux.HandleFunc("POST /plea/{stage}/{index}", srv.save)
	mux.HandleFunc("GET /", srv.home)

	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("pleaflow listening", "addr", *addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

type server struct {
	graph  *forms.Graph
	store  session.Store
	logger *slog.Logger
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/plea/"+s.graph.Start(), http.StatusFound)
}

func (s *server) load(w http.ResponseWriter, r *http.Request) {
	engine, journeyID, data, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	req := forms.RequestContext{}
	if r.URL.Query().Get("reset") == "true" {
		req[forms.KeyReset] = true
	}

	outcome, err := engine.Load(req)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.store.Put(r.Context(), journeyID, data); err != nil {
		s.fail(w, err)
		return
	}

	// Rendering the terminal stage is the end of the journey; the stored
	// data has served its purpose.
	if engine.Stage() == s.graph.Terminal() && outcome.Kind == contracts.OutcomeRender {
		if err := s.store.Delete(r.Context(), journeyID); err != nil {
			s.logger.Error("failed to clear journey", "error", err)
		}
	}

	s.respond(w, r, engine, outcome)
}

func (s *server) save(w http.ResponseWriter, r *http.Request) {
	engine, journeyID, data, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	outcome, err := engine.Save(r.Context(), r.PostForm, forms.RequestContext{}, r.URL.Query().Get("next"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.store.Put(r.Context(), journeyID, data); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, engine, outcome)
}

func (s *server) engineFor(w http.ResponseWriter, r *http.Request) (*forms.Engine, string, contracts.JourneyData, bool) {
	stage := r.PathValue("stage")
	index := -1
	if raw := r.PathValue("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid index", http.StatusBadRequest)
			return nil, "", nil, false
		}
		index = n
	}

	journeyID, data := s.journey(w, r)
	engine, err := forms.New(s.graph, data, stage, index, forms.WithLogger(s.logger))
	if err != nil {
		if errors.Is(err, contracts.ErrStageNotFound) {
			http.NotFound(w, r)
			return nil, "", nil, false
		}
		s.fail(w, err)
		return nil, "", nil, false
	}
	return engine, journeyID, data, true
}

func (s *server) journey(w http.ResponseWriter, r *http.Request) (string, contracts.JourneyData) {
	if cookie, err := r.Cookie(journeyCookie); err == nil {
		if data, err := s.store.Get(r.Context(), cookie.Value); err == nil {
			return cookie.Value, data
		}
	}
	journeyID := session.NewJourneyID()
	http.SetCookie(w, &http.Cookie{
		Name:     journeyCookie,
		Value:    journeyID,
		Path:     "/",
		HttpOnly: true,
	})
	return journeyID, contracts.JourneyData{}
}

func (s *server) respond(w http.ResponseWriter, r *http.Request, engine *forms.Engine, outcome contracts.Outcome) {
	var messages []contracts.Message
	engine.ProcessMessages(contracts.MessageSinkFunc(func(severity contracts.Severity, text string) {
		messages = append(messages, contracts.Message{Severity: severity, Text: text})
	}))

	switch outcome.Kind {
	case contracts.OutcomeHome:
		http.Redirect(w, r, "/", http.StatusFound)
	case contracts.OutcomeRedirect:
		target := "/plea/" + outcome.Stage
		if outcome.Index >= 0 {
			target += "/" + strconv.Itoa(outcome.Index)
		}
		http.Redirect(w, r, target, http.StatusFound)
	default:
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]any{
			"context":  outcome.Context,
			"messages": messages,
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func sweepExpired(ctx context.Context, pg *session.PostgresStore, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := pg.ExpireBefore(ctx, time.Now().Add(-ttl))
			if err != nil {
				logger.Error("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired abandoned journeys", "count", removed)
			}
		}
	}
}
