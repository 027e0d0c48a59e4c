package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/prometna/internal/ai"
)

const (
	// SystemInstruction is the assistant persona for every conversation.
	SystemInstruction = "Ti si ljubazan i uslužan asistent za Prometnu Školu Split. Odgovaraj na pitanja učenika, roditelja i osoblja na hrvatskom jeziku. Budi profesionalan, ali topao i pristupačan, kao pedagog."

	Greeting  = "Pozdrav! Ja sam AI asistent Prometne škole. Kako vam mogu pomoći danas?"
	ErrorText = "Došlo je do pogreške. Pokušajte ponovno."
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a reply is already streaming")
	ErrClosed       = errors.New("chat session is closed")
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateFragment UpdateKind = "fragment"
	UpdateDone     UpdateKind = "done"
	UpdateError    UpdateKind = "error"
)

// Update describes one change to the transcript. Message is the state of the
// message at Index after the change; Fragment is set for fragment updates.
type Update struct {
	Kind     UpdateKind `json:"type"`
	Index    int        `json:"index"`
	Message  Message    `json:"message"`
	Fragment string     `json:"fragment,omitempty"`
}

// Conversation streams replies for a single multi-turn chat.
type Conversation interface {
	SendMessageStream(ctx context.Context, text string) (<-chan ai.Chunk, error)
}

// Backend starts conversations.
type Backend interface {
	StartChat(systemInstruction string) Conversation
}

// Sink receives a copy of every exchanged message. Implementations must not block.
type Sink interface {
	LogChat(sender, text string)
}

type aiBackend struct {
	client *ai.Client
}

// NewAIBackend adapts an ai.Client to Backend.
func NewAIBackend(c *ai.Client) Backend {
	return aiBackend{client: c}
}

func (b aiBackend) StartChat(systemInstruction string) Conversation {
	return b.client.StartChat(systemInstruction)
}

// Session is one chat screen: a transcript bound to a conversation.
type Session struct {
	backend Backend
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	conv       Conversation
	open       bool
	generation int
	messages   []Message
	inFlight   bool
	cancel     context.CancelFunc
	lastActive time.Time
}

func NewSession(backend Backend, sink Sink, logger *slog.Logger) *Session {
	return &Session{
		backend: backend,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Open binds a fresh conversation and resets the transcript to the greeting.
// Any previous conversation, including a reply still streaming, is dropped.
func (s *Session) Open() {
	conv := s.backend.StartChat(SystemInstruction)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.conv = conv
	s.open = true
	s.inFlight = false
	s.messages = []Message{{Sender: SenderBot, Text: Greeting}}
	s.lastActive = s.now()
}

// Close releases the conversation. A streaming reply is cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.open = false
	s.conv = nil
}

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Busy reports whether a reply is streaming.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Send appends text as a user message and streams the reply into a new bot
// message. observe, when non-nil, is called for every transcript change in
// order. Exactly one bot message is added per accepted call; on failure its
// text is ErrorText and the error is returned.
func (s *Session) Send(ctx context.Context, text string, observe func(Update)) error {
	if observe == nil {
		observe = func(Update) {}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	s.inFlight = true
	s.cancel = cancel
	gen := s.generation
	conv := s.conv
	s.lastActive = s.now()

	userMsg := Message{Sender: SenderUser, Text: text}
	s.messages = append(s.messages, userMsg)
	userIdx := len(s.messages) - 1
	s.messages = append(s.messages, Message{Sender: SenderBot})
	botIdx := len(s.messages) - 1
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.generation == gen {
			s.inFlight = false
			s.cancel = nil
			s.lastActive = s.now()
		}
		s.mu.Unlock()
	}()

	observe(Update{Kind: UpdateMessage, Index: userIdx, Message: userMsg})
	observe(Update{Kind: UpdateMessage, Index: botIdx, Message: Message{Sender: SenderBot}})
	s.sink.LogChat(string(SenderUser), text)

	reply, err := s.stream(ctx, conv, gen, botIdx, text, observe)
	if err != nil {
		s.logger.Warn("chat reply failed", "error", err)
		msg := Message{Sender: SenderBot, Text: ErrorText}
		s.mu.Lock()
		if s.generation == gen {
			s.messages[botIdx] = msg
		}
		s.mu.Unlock()
		observe(Update{Kind: UpdateError, Index: botIdx, Message: msg})
		s.sink.LogChat(string(SenderBot), "[GREŠKA] "+err.Error())
		return err
	}

	observe(Update{Kind: UpdateDone, Index: botIdx, Message: Message{Sender: SenderBot, Text: reply}})
	s.sink.LogChat(string(SenderBot), reply)
	return nil
}

func (s *Session) stream(ctx context.Context, conv Conversation, gen, botIdx int, text string, observe func(Update)) (string, error) {
	chunks, err := conv.SendMessageStream(ctx, text)
	if err != nil {
		return "", err
	}

	var reply strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Text == "" {
			continue
		}
		reply.WriteString(chunk.Text)
		current := Message{Sender: SenderBot, Text: reply.String()}

		s.mu.Lock()
		stale := s.generation != gen
		if !stale {
			s.messages[botIdx] = current
		}
		s.mu.Unlock()
		if stale {
			return "", context.Canceled
		}
		observe(Update{Kind: UpdateFragment, Index: botIdx, Message: current, Fragment: chunk.Text})
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply.String(), nil
}
