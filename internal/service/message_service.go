package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/OMGroups-backend/internal/logging"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
	"github.com/noteduco342/OMGroups-backend/internal/validation"
	"go.uber.org/zap"
)

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Notifier delivers an event to every subscriber of a room.
type Notifier interface {
	Publish(ctx context.Context, room string, event models.RoomEvent) error
}

// HistoryCache stores ciphertext rows only; membership is always read fresh.
// SetGroupHistory must drop the fill when the group's generation is no
// longer the one passed in.
type HistoryCache interface {
	GetGroupHistory(ctx context.Context, groupID string) ([]models.Message, bool)
	HistoryGeneration(ctx context.Context, groupID string) (int64, error)
	SetGroupHistory(ctx context.Context, groupID string, generation int64, messages []models.Message) error
	InvalidateGroupHistory(ctx context.Context, groupID string) error
}

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	groupRepo   repository.GroupRepositoryInterface
	cipher      Cipher
	notifier    Notifier
	cache       HistoryCache
	clock       Clock
	maxLength   int
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	groupRepo repository.GroupRepositoryInterface,
	cipher Cipher,
	notifier Notifier,
	cache HistoryCache,
	clock Clock,
	maxLength int,
) *MessageService {
	if clock == nil {
		clock = NewMonotonicClock(SystemClock{})
	}
	return &MessageService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		cipher:      cipher,
		notifier:    notifier,
		cache:       cache,
		clock:       clock,
		maxLength:   maxLength,
	}
}

type Ack struct {
	DeliveredAt time.Time `json:"deliveredAt"`
}

type SendResult struct {
	Ack     Ack
	Message models.MessagePayload
}

// SendMessage stores an encrypted message, publishes the plaintext to the
// group's room and acknowledges the sender.
func (s *MessageService) SendMessage(ctx context.Context, actorID, groupID, content string) (*SendResult, error) {
	if validation.ContentBlank(content) {
		return nil, newError(KindValidation, "content_required", MsgContentRequired)
	}
	if !validation.ContentFits(content, s.maxLength) {
		return nil, newError(KindValidation, "content_too_long", MsgContentTooLong)
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(actorID) {
		return nil, newError(KindForbidden, "not_member", MsgNotMember)
	}

	encrypted, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, internalError(err)
	}
	msg := &models.Message{
		ID:        uuid.NewString(),
		GroupID:   group.ID,
		SenderID:  actorID,
		Content:   encrypted,
		Timestamp: s.clock.Now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, internalError(err)
	}

	log := logging.FromContext(ctx).With(zap.String("group_id", group.ID), zap.String("message_id", msg.ID))
	if s.cache != nil {
		if err := s.cache.InvalidateGroupHistory(ctx, group.ID); err != nil {
			log.Warn("history cache invalidation failed", zap.Error(err))
		}
	}

	// Echo what was actually stored.
	plaintext, err := s.cipher.Decrypt(msg.Content)
	if err != nil {
		return nil, internalError(err)
	}
	payload := msg.ToPayload(plaintext)

	if s.notifier != nil {
		event := models.RoomEvent{Room: group.ID, Type: models.EventNewMessage, Payload: payload}
		if err := s.notifier.Publish(ctx, group.ID, event); err != nil {
			log.Warn("publish to room failed", zap.Error(err))
		}
	}

	log.Debug("message sent")
	return &SendResult{Ack: Ack{DeliveredAt: time.Now().UTC()}, Message: payload}, nil
}

// GetMessages returns a group's whole history in timestamp order, decrypted.
func (s *MessageService) GetMessages(ctx context.Context, actorID, groupID string) ([]models.MessagePayload, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(actorID) {
		return nil, newError(KindForbidden, "not_authorized", MsgNotAuthorizedView)
	}

	rows, err := s.history(ctx, group.ID)
	if err != nil {
		return nil, internalError(err)
	}

	out := make([]models.MessagePayload, 0, len(rows))
	for i := range rows {
		plaintext, err := s.cipher.Decrypt(rows[i].Content)
		if err != nil {
			return nil, internalError(err)
		}
		out = append(out, rows[i].ToPayload(plaintext))
	}
	return out, nil
}

func (s *MessageService) history(ctx context.Context, groupID string) ([]models.Message, error) {
	if s.cache == nil {
		return s.messageRepo.FindByGroup(ctx, groupID)
	}
	if rows, ok := s.cache.GetGroupHistory(ctx, groupID); ok {
		return rows, nil
	}

	log := logging.FromContext(ctx).With(zap.String("group_id", groupID))
	// Observed before the store read so a send committed meanwhile voids the fill.
	gen, genErr := s.cache.HistoryGeneration(ctx, groupID)
	if genErr != nil {
		log.Warn("history generation read failed", zap.Error(genErr))
	}

	rows, err := s.messageRepo.FindByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if err := s.cache.SetGroupHistory(ctx, groupID, gen, rows); err != nil {
			log.Warn("history cache fill failed", zap.Error(err))
		}
	}
	return rows, nil
}

func (s *MessageService) findGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if !validation.ValidateID(groupID) {
		return nil, newError(KindNotFound, "group_not_found", MsgGroupNotFound)
	}
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "group_not_found", MsgGroupNotFound)
		}
		return nil, internalError(err)
	}
	return group, nil
}
