package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/noteduco342/OMGroups-backend/internal/logging"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
	"github.com/noteduco342/OMGroups-backend/internal/validation"
	"go.uber.org/zap"
)

// PrivateRejoinCooldown is how long a user who left a private group must
// wait before requesting to join it again.
const PrivateRejoinCooldown = 48 * time.Hour

type GroupService struct {
	groupRepo repository.GroupRepositoryInterface
	clock     Clock
}

func NewGroupService(groupRepo repository.GroupRepositoryInterface, clock Clock) *GroupService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &GroupService{groupRepo: groupRepo, clock: clock}
}

type CreateGroupInput struct {
	Name       string  `json:"name" validate:"required,max=100"`
	Type       string  `json:"type" validate:"required,oneof=open private"`
	MaxMembers float64 `json:"maxMembers" validate:"required,min=2,max=1000000"`
}

// JoinOutcome tells the caller which branch of JoinGroup ran.
type JoinOutcome int

const (
	JoinedGroup JoinOutcome = iota + 1
	JoinRequested
)

func (o JoinOutcome) Message() string {
	if o == JoinRequested {
		return MsgRequestSubmitted
	}
	return MsgJoinedOpen
}

func (s *GroupService) CreateGroup(ctx context.Context, actorID string, input CreateGroupInput) (*models.Group, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(input.Type)
	if err := validateCreateGroup(input); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:       input.Name,
		Type:       models.GroupType(input.Type),
		MaxMembers: int(input.MaxMembers),
		Owner:      actorID,
		Members:    []string{actorID},
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, internalError(err)
	}

	logging.FromContext(ctx).Info("group created",
		zap.String("group_id", group.ID),
		zap.String("type", string(group.Type)),
		zap.Int("max_members", group.MaxMembers),
	)
	return group, nil
}

func validateCreateGroup(input CreateGroupInput) error {
	err := validation.Validator().Struct(input)
	if err == nil {
		if input.MaxMembers != math.Trunc(input.MaxMembers) {
			return newError(KindValidation, "invalid_max_members", MsgMaxMembersInvalid)
		}
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return internalError(err)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return newError(KindValidation, "missing_fields", MsgGroupFieldsRequired)
		}
	}
	switch fieldErrs[0].Field() {
	case "Type":
		return newError(KindValidation, "invalid_group_type", MsgGroupTypeInvalid)
	case "MaxMembers":
		return newError(KindValidation, "invalid_max_members", MsgMaxMembersInvalid)
	default:
		return newError(KindValidation, "invalid_group_name", MsgGroupNameTooLong)
	}
}

// JoinGroup adds the actor to an open group, or files a join request for a
// private one.
func (s *GroupService) JoinGroup(ctx context.Context, actorID, groupID string) (JoinOutcome, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if group.IsBanned(actorID) {
		return 0, newError(KindForbidden, "banned", MsgBanned)
	}

	var outcome JoinOutcome
	switch group.Type {
	case models.GroupOpen:
		outcome, err = JoinedGroup, s.joinOpen(ctx, actorID, group)
	case models.GroupPrivate:
		outcome, err = JoinRequested, s.joinPrivate(ctx, actorID, group)
	default:
		err = internalError(errors.New("group has unknown type " + string(group.Type)))
	}
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

func (s *GroupService) joinOpen(ctx context.Context, actorID string, group *models.Group) error {
	if group.IsMember(actorID) {
		return newError(KindConflict, "already_member", MsgAlreadyMember)
	}
	if group.IsFull() {
		return newError(KindConflict, "group_full", MsgGroupFull)
	}
	group.AddMember(actorID)
	return s.save(ctx, group, "member joined", zap.String("user_id", actorID))
}

func (s *GroupService) joinPrivate(ctx context.Context, actorID string, group *models.Group) error {
	if group.IsMember(actorID) {
		return newError(KindConflict, "already_member", MsgAlreadyMember)
	}

	now := s.clock.Now()
	if rec, ok := group.LeaveRecordFor(actorID); ok {
		elapsed := now.Sub(rec.LeftAt)
		if elapsed < PrivateRejoinCooldown {
			e := newError(KindForbidden, "rejoin_cooldown", MsgRejoinCooldown)
			e.RetryAfter = PrivateRejoinCooldown - elapsed
			return e
		}
		group.ClearLeaveRecord(actorID)
	}

	if group.JoinRequestIndex(actorID) != -1 {
		return newError(KindConflict, "request_exists", MsgRequestExists)
	}
	group.AddJoinRequest(actorID, now)
	return s.save(ctx, group, "join request submitted", zap.String("user_id", actorID))
}

func (s *GroupService) ApproveJoinRequest(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsOwner(actorID) {
		return newError(KindForbidden, "not_owner", MsgOnlyOwnerApprove)
	}
	if group.JoinRequestIndex(userID) == -1 {
		return newError(KindNotFound, "request_not_found", MsgRequestNotFound)
	}
	if group.IsFull() {
		return newError(KindConflict, "group_full", MsgGroupFull)
	}

	group.AddMember(userID)
	group.RemoveJoinRequest(userID)
	return s.save(ctx, group, "join request approved", zap.String("user_id", userID))
}

func (s *GroupService) LeaveGroup(ctx context.Context, actorID, groupID string) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsOwner(actorID) {
		return newError(KindConflict, "owner_must_transfer", MsgOwnerMustTransfer)
	}
	if !group.IsMember(actorID) {
		return newError(KindConflict, "not_member", MsgNotMember)
	}

	group.RemoveMember(actorID)
	if group.Type == models.GroupPrivate {
		group.RecordLeave(actorID, s.clock.Now())
	}
	return s.save(ctx, group, "member left", zap.String("user_id", actorID))
}

// BanishMember removes a user and bans them. Bans only block future joins;
// a pending request from the user is left in place.
func (s *GroupService) BanishMember(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsOwner(actorID) {
		return newError(KindForbidden, "not_owner", MsgOnlyOwnerBanish)
	}
	if strings.TrimSpace(userID) == "" {
		return newError(KindValidation, "missing_user_id", MsgUserIDRequired)
	}
	if userID == group.Owner {
		return newError(KindConflict, "cannot_banish_owner", MsgOwnerCannotBanishSelf)
	}

	group.Ban(userID)
	return s.save(ctx, group, "member banished", zap.String("user_id", userID))
}

func (s *GroupService) TransferOwnership(ctx context.Context, actorID, groupID, newOwnerID string) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsOwner(actorID) {
		return newError(KindForbidden, "not_owner", MsgOnlyOwnerTransfer)
	}
	if !group.IsMember(newOwnerID) {
		return newError(KindConflict, "new_owner_not_member", MsgNewOwnerNotMember)
	}

	group.Owner = newOwnerID
	return s.save(ctx, group, "ownership transferred", zap.String("new_owner", newOwnerID))
}

func (s *GroupService) DeleteGroup(ctx context.Context, actorID, groupID string) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsOwner(actorID) {
		return newError(KindForbidden, "not_owner", MsgOnlyOwnerDelete)
	}
	if !group.HasOnlyOwner() {
		return newError(KindConflict, "group_not_empty", MsgGroupNotEmpty)
	}

	if err := s.groupRepo.Delete(ctx, group.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, "group_not_found", MsgGroupNotFound)
		}
		return internalError(err)
	}
	logging.FromContext(ctx).Info("group deleted", zap.String("group_id", group.ID))
	return nil
}

// GetGroup returns the current state of a group.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.loadGroup(ctx, groupID)
}

// IsMember reports whether userID currently belongs to groupID. A missing
// group is reported as a not-found error.
func (s *GroupService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	return group.IsMember(userID), nil
}

// loadGroup returns a private copy of the stored group that the caller may
// mutate freely.
func (s *GroupService) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
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
	return group.Clone(), nil
}

func (s *GroupService) save(ctx context.Context, group *models.Group, event string, fields ...zap.Field) error {
	if err := s.groupRepo.Save(ctx, group); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleGroup):
			return newError(KindStale, "stale_group", MsgStaleGroup)
		case errors.Is(err, repository.ErrNotFound):
			return newError(KindNotFound, "group_not_found", MsgGroupNotFound)
		default:
			return internalError(err)
		}
	}
	logging.FromContext(ctx).Info(event, append(fields, zap.String("group_id", group.ID))...)
	return nil
}
