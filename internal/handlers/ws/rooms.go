package ws

import "strings"

type roomAck struct {
	GroupID string `json:"groupId"`
}

// MessageJoinGroup subscribes the socket to a group's room.
type MessageJoinGroup struct {
	GroupID string `json:"groupId"`
}

func (msg *MessageJoinGroup) GetType() string {
	return "joinGroup"
}

func (msg *MessageJoinGroup) Process(ctx *MessageContext) error {
	room := strings.TrimSpace(msg.GroupID)
	if err := ctx.Hub.Join(ctx.Ctx, ctx.Client, room); err != nil {
		return err
	}
	return ctx.Hub.Send(ctx.Client, Frame{Type: "joined", Payload: roomAck{GroupID: room}})
}

// MessageLeaveGroup unsubscribes the socket from a group's room.
type MessageLeaveGroup struct {
	GroupID string `json:"groupId"`
}

func (msg *MessageLeaveGroup) GetType() string {
	return "leaveGroup"
}

func (msg *MessageLeaveGroup) Process(ctx *MessageContext) error {
	room := strings.TrimSpace(msg.GroupID)
	if room == "" {
		return ErrRoomRequired
	}
	ctx.Hub.Leave(ctx.Client, room)
	return ctx.Hub.Send(ctx.Client, Frame{Type: "left", Payload: roomAck{GroupID: room}})
}
