package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/client"
	"github.com/makeasinger/studio/internal/model"
)

const chatSystemPrompt = `You are a friendly songwriting assistant for an AI singing studio.
Help the user shape an idea into a finished song: title, style, genre, mood, tempo, vocals, language and lyrics.
Ask short follow-up questions when something important is missing.
When the user is ready to generate, finish your reply with exactly one fenced block tagged "song" containing JSON:
` + "```song" + `
{"title":"...","style":"...","genre":"...","mood":"...","tempo":"...","language":"en","vocals":"female","lyrics":"..."}
` + "```" + `
language is one of en, tr, fr, es, de, it, pt, ja, ko. vocals is one of male, female, duet, choir, instrumental.
Only include the block when the lyrics are complete.`

var songBlockRe = regexp.MustCompile("(?s)```song\\s*\\n(.*?)```")

// ChatService runs the songwriting assistant conversation
type ChatService struct {
	chat client.ChatCompleter
	log  zerolog.Logger
}

// NewChatService creates a new chat service
func NewChatService(chat client.ChatCompleter, logger zerolog.Logger) *ChatService {
	return &ChatService{
		chat: chat,
		log:  logger.With().Str("service", "chat").Logger(),
	}
}

// Reply returns the assistant's next message and any song request it embeds
func (s *ChatService) Reply(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if s.chat == nil || !s.chat.IsConfigured() {
		return s.replyMock(req), nil
	}

	raw, err := s.chat.ChatCompletion(ctx, chatSystemPrompt, req.Messages)
	if err != nil {
		return nil, fmt.Errorf("AI chat failed: %w", err)
	}

	reply, song := ParseSongRequest(raw)
	if song != nil {
		s.log.Debug().Str("title", song.Title).Msg("song request extracted from reply")
	}
	return &model.ChatResponse{Reply: reply, SongRequest: song}, nil
}

// ParseSongRequest strips a fenced song block from an assistant reply and
// decodes it. A block that does not decode or has no lyrics is left in place.
func ParseSongRequest(reply string) (string, *model.SongDetails) {
	loc := songBlockRe.FindStringSubmatchIndex(reply)
	if loc == nil {
		return strings.TrimSpace(reply), nil
	}

	var details model.SongDetails
	if err := json.Unmarshal([]byte(reply[loc[2]:loc[3]]), &details); err != nil {
		return strings.TrimSpace(reply), nil
	}
	if strings.TrimSpace(details.Lyrics) == "" {
		return strings.TrimSpace(reply), nil
	}

	cleaned := strings.TrimSpace(reply[:loc[0]] + reply[loc[1]:])
	return cleaned, &details
}

func (s *ChatService) replyMock(req *model.ChatRequest) *model.ChatResponse {
	last := req.Messages[len(req.Messages)-1].Content
	return &model.ChatResponse{
		Reply: "Here is a first draft based on your idea. Generate it as is or tell me what to change.",
		SongRequest: &model.SongDetails{
			Title:    "Draft",
			Style:    "acoustic pop",
			Mood:     "warm",
			Language: model.LanguageEN,
			Vocals:   model.VocalsFemale,
			Lyrics:   last,
		},
	}
}
