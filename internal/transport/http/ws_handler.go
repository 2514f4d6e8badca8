package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	logger   *slog.Logger
	upgrader websocket.Upgrader

	// owners maps a user to the connection that last started or resumed their quiz.
	mu     sync.Mutex
	owners map[string]*conn
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		owners:  make(map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Category string `json:"category"`
}

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

type timerPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

type warningPayload struct {
	Message string `json:"message"`
}

type deniedPayload struct {
	Category string `json:"category"`
	app.Decision
}

// questionView is a question as sent to players, without the correct answer.
type questionView struct {
	ID            string              `json:"id"`
	Question      string              `json:"question"`
	Options       []string            `json:"options"`
	Difficulty    domain.Difficulty   `json:"difficulty"`
	Category      string              `json:"category"`
	Subcategory   string              `json:"subcategory,omitempty"`
	Type          domain.QuestionType `json:"type"`
	EmojiClue     string              `json:"emoji_clue,omitempty"`
	VisualOptions []string            `json:"visual_options,omitempty"`
}

type questionChangedPayload struct {
	Index    int          `json:"index"`
	Total    int          `json:"total"`
	Question questionView `json:"question"`
}

type startedPayload struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
	Resumed  bool   `json:"resumed"`
	app.Decision
}

// conn owns the outbound side of one websocket. Sends after close, or after the
// writer has stopped on a write error, are dropped.
type conn struct {
	send       chan outboundMessage[any]
	closed     chan struct{}
	writerDone chan struct{}
}

func (c *conn) push(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.closed:
	case <-c.writerDone:
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// Query: userId (optional, generated when blank), name, category (blank for the homepage quiz).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	category := r.URL.Query().Get("category")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	// The request context is not cancelled on hijacked connections, so use our own.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	user, err := h.service.EnsureUser(ctx, userID, name)
	if err != nil {
		_ = ws.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	userID = user.ID

	c := newConn(32)

	go func() {
		defer close(c.writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := ws.WriteJSON(msg); err != nil {
					h.logger.Warn("ws write error", "user", userID, "error", err)
					return
				}
			case <-c.closed:
				return
			}
		}
	}()

	c.push("user", user)
	h.start(ctx, c, userID, category)

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := decodePayload(inbound.Payload, &payload); err != nil {
				c.push("error", errorPayload{Message: "invalid start payload"})
				continue
			}
			h.start(ctx, c, userID, payload.Category)
		case "answer":
			var payload answerPayload
			if err := decodePayload(inbound.Payload, &payload); err != nil {
				c.push("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			if _, _, err := h.service.Answer(ctx, userID, payload.QuestionIndex, payload.AnswerIndex); err != nil {
				c.push("error", errorPayload{Message: err.Error()})
			}
		case "timerExpired":
			var payload timerPayload
			if err := decodePayload(inbound.Payload, &payload); err != nil {
				c.push("error", errorPayload{Message: "invalid timer payload"})
				continue
			}
			if _, _, err := h.service.ExpireTimer(ctx, userID, payload.QuestionIndex); err != nil {
				c.push("error", errorPayload{Message: err.Error()})
			}
		case "abandon":
			if err := h.service.Abandon(ctx, userID); err != nil {
				c.push("error", errorPayload{Message: err.Error()})
			}
		default:
			c.push("error", errorPayload{Message: "unsupported message type"})
		}
	}

	if h.release(userID, c) {
		h.service.Leave(ctx, userID)
	}
	close(c.closed)
	<-c.writerDone
}

func newConn(buffer int) *conn {
	return &conn{
		send:       make(chan outboundMessage[any], buffer),
		closed:     make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (h *WSHandler) start(ctx context.Context, c *conn, userID, category string) {
	listener := h.listener(ctx, c, userID)
	var (
		res app.StartResult
		err error
	)
	h.mu.Lock()
	h.owners[userID] = c
	h.mu.Unlock()
	if category == "" || category == string(domain.SectionHomepage) {
		res, err = h.service.StartHomepage(ctx, userID, listener)
	} else {
		res, err = h.service.StartCategory(ctx, userID, category, listener)
	}
	if err != nil {
		h.logger.Warn("quiz start failed", "user", userID, "category", category, "error", err)
		c.push("error", errorPayload{Message: err.Error(), Retry: errors.Is(err, domain.ErrFatalLoad)})
		return
	}
	if res.Denied != nil {
		c.push("denied", deniedPayload{Category: res.Category, Decision: *res.Denied})
		return
	}
	if res.Warning != nil {
		c.push("warning", warningPayload{Message: "progress could not be saved"})
	}
	c.push("user", res.User)
	c.push("started", startedPayload{Category: res.Category, Total: res.Total, Resumed: res.Resumed, Decision: res.Decision})
}

// release reports whether c still owned the user's quiz. A connection replaced by a
// newer one must not abandon the quiz the newer one resumed.
func (h *WSHandler) release(userID string, c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owners[userID] != c {
		return false
	}
	delete(h.owners, userID)
	return true
}

// listener maps progression events onto outbound messages. It never blocks once the
// connection is closing.
func (h *WSHandler) listener(ctx context.Context, c *conn, userID string) app.Listener {
	return func(e app.Event) {
		switch e.Kind {
		case app.EventQuestionChanged:
			c.push("questionChanged", questionChangedPayload{Index: e.Index, Total: e.Total, Question: viewQuestion(e.Question)})
		case app.EventAnswerScored:
			c.push("answerScored", e.Outcome)
			if e.Outcome.Warning != "" {
				c.push("warning", warningPayload{Message: e.Outcome.Warning})
			}
		case app.EventQuizCompleted:
			c.push("quizCompleted", e.Result)
			if e.Result.Warning != "" {
				c.push("warning", warningPayload{Message: e.Result.Warning})
			}
			if user, err := h.service.User(ctx, userID); err == nil {
				c.push("user", user)
			}
		}
	}
}

func viewQuestion(q domain.Question) questionView {
	return questionView{
		ID:            q.ID,
		Question:      q.Question,
		Options:       q.Options,
		Difficulty:    q.Difficulty,
		Category:      q.Category,
		Subcategory:   q.Subcategory,
		Type:          q.Type,
		EmojiClue:     q.EmojiClue,
		VisualOptions: q.VisualOptions,
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}
