package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/ports"
)

const pollTimeoutSec = 30

// LongPollSource consumes updates from the Bot API and delivers them as
// source events tagged with the role bound to their origin chat. Updates from
// unbound chats are discarded.
type LongPollSource struct {
	client *Client
	roles  map[int64]domain.Role
	offset int64
	logger *slog.Logger
}

var _ ports.Source = (*LongPollSource)(nil)

// NewLongPollSource binds chat identifiers to pipeline roles.
func NewLongPollSource(client *Client, roles map[int64]domain.Role, logger *slog.Logger) *LongPollSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LongPollSource{client: client, roles: roles, logger: logger}
}

// Run polls for updates until ctx is cancelled, invoking handle for each
// inbound item.
func (s *LongPollSource) Run(ctx context.Context, handle func(context.Context, ports.SourceEvent)) error {
	for ctx.Err() == nil {
		updates, err := s.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Warn("getUpdates failed", "error", err)
			sleep(ctx, 3*time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= s.offset {
				s.offset = u.UpdateID + 1
			}

			msg := u.Message
			if msg == nil {
				msg = u.ChannelPost
			}
			if msg == nil {
				continue
			}

			role, bound := s.roles[msg.Chat.ID]
			if !bound {
				continue
			}

			handle(ctx, ports.SourceEvent{
				Role:      role,
				MessageID: msg.MessageID,
				Text:      msg.Text,
				Service:   msg.isService(),
			})
		}
	}
	return nil
}

type update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *message `json:"message"`
	ChannelPost *message `json:"channel_post"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	NewChatMembers []json.RawMessage `json:"new_chat_members"`
	LeftChatMember *json.RawMessage  `json:"left_chat_member"`
	PinnedMessage  *json.RawMessage  `json:"pinned_message"`
}

// isService flags administrative/state-change events the pipeline ignores.
func (m *message) isService() bool {
	return m.Text == "" || len(m.NewChatMembers) > 0 || m.LeftChatMember != nil || m.PinnedMessage != nil
}

func (s *LongPollSource) fetch(ctx context.Context) ([]update, error) {
	form := url.Values{}
	form.Set("offset", strconv.FormatInt(s.offset, 10))
	form.Set("timeout", strconv.Itoa(pollTimeoutSec))
	form.Set("allowed_updates", `["message","channel_post"]`)

	var updates []update
	if err := s.client.call(ctx, "getUpdates", form, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
