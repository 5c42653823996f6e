package models

import (
	"time"

	"github.com/samber/lo"
)

type GroupType string

const (
	GroupOpen    GroupType = "open"
	GroupPrivate GroupType = "private"
)

func (t GroupType) Valid() bool {
	return t == GroupOpen || t == GroupPrivate
}

// MinGroupMembers is the smallest capacity a group may be created with.
const MinGroupMembers = 2

type JoinRequest struct {
	UserID      string    `bson:"userId" json:"userId" msgpack:"userId"`
	RequestedAt time.Time `bson:"requestedAt" json:"requestedAt" msgpack:"requestedAt"`
}

type LeaveRecord struct {
	UserID string    `bson:"userId" json:"userId" msgpack:"userId"`
	LeftAt time.Time `bson:"leftAt" json:"leftAt" msgpack:"leftAt"`
}

// Group is stored as a single document: the membership collections are
// embedded (JSON columns in Postgres, arrays in Mongo).
type Group struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id"`
	Name       string    `gorm:"size:100;not null" bson:"name" json:"name"`
	Type       GroupType `gorm:"type:varchar(16);not null" bson:"type" json:"type"`
	MaxMembers int       `gorm:"not null" bson:"maxMembers" json:"maxMembers"`
	Owner      string    `gorm:"type:varchar(36);not null;index" bson:"owner" json:"owner"`

	Members         []string      `gorm:"type:jsonb;serializer:json;not null" bson:"members" json:"members"`
	JoinRequests    []JoinRequest `gorm:"type:jsonb;serializer:json;not null" bson:"joinRequests" json:"joinRequests"`
	BannedMembers   []string      `gorm:"type:jsonb;serializer:json;not null" bson:"bannedMembers" json:"bannedMembers"`
	PrivateLeaveLog []LeaveRecord `gorm:"type:jsonb;serializer:json;not null" bson:"privateLeaveLog" json:"privateLeaveLog"`

	// Version is bumped on every save; only consulted when optimistic locking is on.
	Version int64 `gorm:"not null;default:0" bson:"version" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (g *Group) IsOwner(userID string) bool {
	return g.Owner == userID
}

func (g *Group) IsMember(userID string) bool {
	return lo.Contains(g.Members, userID)
}

func (g *Group) IsBanned(userID string) bool {
	return lo.Contains(g.BannedMembers, userID)
}

func (g *Group) IsFull() bool {
	return len(g.Members) >= g.MaxMembers
}

// HasOnlyOwner reports whether the owner is the sole remaining member.
func (g *Group) HasOnlyOwner() bool {
	return len(g.Members) <= 1
}

func (g *Group) AddMember(userID string) {
	if !g.IsMember(userID) {
		g.Members = append(g.Members, userID)
	}
}

func (g *Group) RemoveMember(userID string) {
	g.Members = lo.Without(g.Members, userID)
}

func (g *Group) Ban(userID string) {
	g.RemoveMember(userID)
	if !g.IsBanned(userID) {
		g.BannedMembers = append(g.BannedMembers, userID)
	}
}

// JoinRequestIndex returns the position of userID's pending request or -1.
func (g *Group) JoinRequestIndex(userID string) int {
	_, idx, ok := lo.FindIndexOf(g.JoinRequests, func(jr JoinRequest) bool {
		return jr.UserID == userID
	})
	if !ok {
		return -1
	}
	return idx
}

func (g *Group) AddJoinRequest(userID string, at time.Time) {
	g.JoinRequests = append(g.JoinRequests, JoinRequest{UserID: userID, RequestedAt: at})
}

func (g *Group) RemoveJoinRequest(userID string) {
	g.JoinRequests = lo.Reject(g.JoinRequests, func(jr JoinRequest, _ int) bool {
		return jr.UserID == userID
	})
}

func (g *Group) LeaveRecordFor(userID string) (LeaveRecord, bool) {
	return lo.Find(g.PrivateLeaveLog, func(r LeaveRecord) bool {
		return r.UserID == userID
	})
}

func (g *Group) RecordLeave(userID string, at time.Time) {
	g.ClearLeaveRecord(userID)
	g.PrivateLeaveLog = append(g.PrivateLeaveLog, LeaveRecord{UserID: userID, LeftAt: at})
}

func (g *Group) ClearLeaveRecord(userID string) {
	g.PrivateLeaveLog = lo.Reject(g.PrivateLeaveLog, func(r LeaveRecord, _ int) bool {
		return r.UserID == userID
	})
}

// Clone returns a deep copy so callers can mutate without touching the
// loaded document until a save succeeds.
func (g *Group) Clone() *Group {
	c := *g
	c.Members = append([]string{}, g.Members...)
	c.JoinRequests = append([]JoinRequest{}, g.JoinRequests...)
	c.BannedMembers = append([]string{}, g.BannedMembers...)
	c.PrivateLeaveLog = append([]LeaveRecord{}, g.PrivateLeaveLog...)
	return &c
}

// Normalize replaces nil collections with empty ones so documents never
// store null arrays.
func (g *Group) Normalize() {
	if g.Members == nil {
		g.Members = []string{}
	}
	if g.JoinRequests == nil {
		g.JoinRequests = []JoinRequest{}
	}
	if g.BannedMembers == nil {
		g.BannedMembers = []string{}
	}
	if g.PrivateLeaveLog == nil {
		g.PrivateLeaveLog = []LeaveRecord{}
	}
}
