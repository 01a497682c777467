package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	NoContextReply           = "No relevant context found. Do you want me to answer based on my general knowledge?"
	InsufficientContextReply = "The provided text does not contain sufficient information to answer your question. " +
		"Do you want me to answer based on my general knowledge?"

	contextSeparator = "\n---\n"
	lockStripes      = 64
)

// Retriever returns the text of the chunks most relevant to query.
type Retriever interface {
	Search(ctx context.Context, query string, topN int) ([]string, error)
}

// StateStore persists the conversation state of each session. Loading an unknown
// session yields the Idle state.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
}

// ChatService answers user input for a session, offering a general-knowledge answer
// when the indexed documents do not help.
type ChatService struct {
	retriever Retriever
	generator Generator
	states    StateStore
	topN      int
	logger    *zap.Logger

	// Requests of one session run one at a time so a confirmation always sees the
	// state left by the previous turn.
	locks [lockStripes]sync.Mutex
}

func NewChatService(retriever Retriever, generator Generator, states StateStore, topN int, logger *zap.Logger) *ChatService {
	if topN <= 0 {
		topN = NumRelevantChunks
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		retriever: retriever,
		generator: generator,
		states:    states,
		topN:      topN,
		logger:    logger,
	}
}

// Respond handles one user turn. Model and store errors are returned as is and leave
// the session state unchanged.
func (s *ChatService) Respond(ctx context.Context, sessionID, userInput string) (string, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.states.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session state: %w", err)
	}

	logger := s.logger.With(zap.String("session_id", sessionID), zap.Stringer("phase", state.Phase))

	if Decide(state, userInput) == ActionGeneralKnowledge {
		question, _ := state.Pending()
		logger.Debug("answering pending question from general knowledge")
		answer, err := s.generator.Generate(ctx, generalKnowledgePrompt(question))
		if err != nil {
			return "", err
		}
		if err := s.states.Save(ctx, sessionID, AfterGeneralKnowledge(state)); err != nil {
			return "", fmt.Errorf("failed to save session state: %w", err)
		}
		return answer, nil
	}

	chunks, err := s.retriever.Search(ctx, userInput, s.topN)
	if err != nil {
		return "", err
	}

	if !HasUsableContext(chunks) {
		logger.Debug("no usable context, offering general knowledge")
		if err := s.states.Save(ctx, sessionID, AfterNoContext(state, userInput)); err != nil {
			return "", fmt.Errorf("failed to save session state: %w", err)
		}
		return NoContextReply, nil
	}

	answer, err := s.generator.Generate(ctx, contextPrompt(chunks, userInput))
	if err != nil {
		return "", err
	}

	next, ok := AfterContextAnswer(state, userInput, answer)
	if err := s.states.Save(ctx, sessionID, next); err != nil {
		return "", fmt.Errorf("failed to save session state: %w", err)
	}
	if !ok {
		logger.Debug("contextual answer unsatisfactory, offering general knowledge")
		return InsufficientContextReply, nil
	}
	return answer, nil
}

func (s *ChatService) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}

func generalKnowledgePrompt(question string) string {
	return fmt.Sprintf("Answer based on general knowledge:\n\nQuestion: %s\n\nAnswer:", question)
}

func contextPrompt(chunks []string, question string) string {
	return fmt.Sprintf(
		"Use the following context to answer the question. "+
			"If the context lacks sufficient detail, supplement your answer using your own knowledge.\n\n"+
			"Context:\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(chunks, contextSeparator), question)
}
