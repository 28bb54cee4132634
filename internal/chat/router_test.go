package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/model"
)

type fakeMessageStore struct {
	inserted []*model.Message
	err      error
}

func (s *fakeMessageStore) Insert(_ context.Context, m *model.Message) (*model.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	m.ID = primitive.NewObjectID()
	m.Timestamp = time.Now().UTC()
	m.IsRead = false
	s.inserted = append(s.inserted, m)
	return m, nil
}

type fakeGroupStore struct {
	groups map[primitive.ObjectID]*model.Group
}

func (s *fakeGroupStore) FindByID(_ context.Context, id primitive.ObjectID) (*model.Group, error) {
	if g, ok := s.groups[id]; ok {
		return g, nil
	}
	return nil, model.ErrGroupNotFound
}

type fakePresenceStore struct {
	writes []presenceWrite
}

type presenceWrite struct {
	role     model.Role
	id       primitive.ObjectID
	status   string
	lastSeen time.Time
}

func (s *fakePresenceStore) SetPresence(_ context.Context, role model.Role, id primitive.ObjectID, status string, lastSeen time.Time) error {
	s.writes = append(s.writes, presenceWrite{role: role, id: id, status: status, lastSeen: lastSeen})
	return nil
}

type routerFixture struct {
	registry *Registry
	router   *Router
	messages *fakeMessageStore
	groups   *fakeGroupStore
}

func newRouterFixture() *routerFixture {
	registry := newTestRegistry()
	return &routerFixture{
		registry: registry,
		router:   NewRouter(registry, zerolog.Nop()),
		messages: &fakeMessageStore{},
		groups:   &fakeGroupStore{groups: map[primitive.ObjectID]*model.Group{}},
	}
}

func (f *routerFixture) session(tenantID string, userID primitive.ObjectID, name string) *Session {
	return &Session{
		key:         Key{TenantID: tenantID, UserID: userID.Hex()},
		userID:      userID,
		role:        model.RoleStudent,
		displayName: name,
		registry:    f.registry,
		router:      f.router,
		messages:    f.messages,
		groups:      f.groups,
		location:    time.UTC,
		log:         zerolog.Nop(),
	}
}

func decodeOutbound(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestRouteDirectMessageEchoesToBothEnds(t *testing.T) {
	f := newRouterFixture()
	senderID := primitive.NewObjectID()
	receiverID := primitive.NewObjectID()

	senderConn := &fakeConn{}
	receiverConn := &fakeConn{}
	f.registry.Register(Key{TenantID: "coep", UserID: senderID.Hex()}, senderConn)
	f.registry.Register(Key{TenantID: "coep", UserID: receiverID.Hex()}, receiverConn)

	sess := f.session("coep", senderID, "Asha")
	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:       FrameTypeMessage,
		Content:    "hello",
		ReceiverID: receiverID.Hex(),
	})
	require.NoError(t, err)

	require.Len(t, f.messages.inserted, 1)
	assert.Equal(t, "hello", f.messages.inserted[0].Content)

	senderFrames := senderConn.sentFrames()
	receiverFrames := receiverConn.sentFrames()
	require.Len(t, senderFrames, 1, "sender must receive an echo")
	require.Len(t, receiverFrames, 1)
	assert.Equal(t, senderFrames[0], receiverFrames[0], "both ends get the identical payload")

	frame := decodeOutbound(t, receiverFrames[0])
	assert.Equal(t, "message", frame["type"])
	data := frame["data"].(map[string]any)
	assert.Equal(t, "hello", data["content"])
	assert.Equal(t, senderID.Hex(), data["senderId"])
	assert.Equal(t, receiverID.Hex(), data["receiverId"])
	assert.Equal(t, false, data["isRead"])
	_, err = time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err, "timestamp must be ISO-8601")
}

func TestRouteDirectMessageOfflineReceiverStillEchoes(t *testing.T) {
	f := newRouterFixture()
	senderID := primitive.NewObjectID()

	senderConn := &fakeConn{}
	f.registry.Register(Key{TenantID: "coep", UserID: senderID.Hex()}, senderConn)

	sess := f.session("coep", senderID, "Asha")
	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:       FrameTypeMessage,
		Content:    "hello",
		ReceiverID: primitive.NewObjectID().Hex(),
	})
	require.NoError(t, err, "an offline receiver is not an error")

	assert.Len(t, f.messages.inserted, 1, "message persists regardless of receiver presence")
	assert.Len(t, senderConn.sentFrames(), 1)
}

func TestRouteDirectMessageMissingReceiverIsMalformed(t *testing.T) {
	f := newRouterFixture()
	sess := f.session("coep", primitive.NewObjectID(), "Asha")

	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:    FrameTypeMessage,
		Content: "hello",
	})
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Empty(t, f.messages.inserted)
}

func TestRouteDirectMessagePersistenceFailureSkipsFanout(t *testing.T) {
	f := newRouterFixture()
	f.messages.err = errors.New("write concern failed")
	senderID := primitive.NewObjectID()

	senderConn := &fakeConn{}
	f.registry.Register(Key{TenantID: "coep", UserID: senderID.Hex()}, senderConn)

	sess := f.session("coep", senderID, "Asha")
	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:       FrameTypeMessage,
		Content:    "hello",
		ReceiverID: primitive.NewObjectID().Hex(),
	})
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Empty(t, senderConn.sentFrames(), "no fan-out on failed persistence")
}

func TestRouteGroupMessageExcludesSender(t *testing.T) {
	f := newRouterFixture()
	senderID := primitive.NewObjectID()
	memberA := primitive.NewObjectID()
	memberB := primitive.NewObjectID()

	groupID := primitive.NewObjectID()
	f.groups.groups[groupID] = &model.Group{
		ID:      groupID,
		Members: []primitive.ObjectID{senderID, memberA, memberB},
	}

	senderConn := &fakeConn{}
	connA := &fakeConn{}
	connB := &fakeConn{}
	f.registry.Register(Key{TenantID: "coep", UserID: senderID.Hex()}, senderConn)
	f.registry.Register(Key{TenantID: "coep", UserID: memberA.Hex()}, connA)
	f.registry.Register(Key{TenantID: "coep", UserID: memberB.Hex()}, connB)

	sess := f.session("coep", senderID, "Asha")
	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:       FrameTypeGroupMessage,
		Content:    "meeting at 5",
		GroupID:    groupID.Hex(),
		SenderName: "Spoofed Name",
	})
	require.NoError(t, err)

	assert.Empty(t, senderConn.sentFrames(), "sender never receives a group echo")
	require.Len(t, connA.sentFrames(), 1)
	require.Len(t, connB.sentFrames(), 1)

	frame := decodeOutbound(t, connA.sentFrames()[0])
	assert.Equal(t, "group_message", frame["type"])
	data := frame["data"].(map[string]any)
	assert.Equal(t, groupID.Hex(), data["groupId"])
	assert.Equal(t, "Asha", data["senderName"], "display name comes from the session, not the frame")
}

func TestRouteGroupMessageNoConnectedMembers(t *testing.T) {
	f := newRouterFixture()
	senderID := primitive.NewObjectID()

	groupID := primitive.NewObjectID()
	f.groups.groups[groupID] = &model.Group{
		ID:      groupID,
		Members: []primitive.ObjectID{senderID, primitive.NewObjectID()},
	}

	sess := f.session("coep", senderID, "Asha")
	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:    FrameTypeGroupMessage,
		Content: "anyone there?",
		GroupID: groupID.Hex(),
	})
	require.NoError(t, err)
	assert.Len(t, f.messages.inserted, 1, "message persists even with nobody connected")
}

func TestRouteGroupMessageUnknownGroup(t *testing.T) {
	f := newRouterFixture()
	sess := f.session("coep", primitive.NewObjectID(), "Asha")

	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:    FrameTypeGroupMessage,
		Content: "hello",
		GroupID: primitive.NewObjectID().Hex(),
	})
	assert.ErrorIs(t, err, model.ErrGroupNotFound)
	assert.Empty(t, f.messages.inserted, "nothing persists for an unknown group")
}

func TestRouteGroupMessageCrossTenantIsolation(t *testing.T) {
	f := newRouterFixture()
	senderID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()

	groupID := primitive.NewObjectID()
	f.groups.groups[groupID] = &model.Group{
		ID:      groupID,
		Members: []primitive.ObjectID{senderID, memberID},
	}

	// Same user id connected under a different tenant must not receive it.
	otherTenantConn := &fakeConn{}
	f.registry.Register(Key{TenantID: "mit", UserID: memberID.Hex()}, otherTenantConn)

	sess := f.session("coep", senderID, "Asha")
	require.NoError(t, f.router.Route(context.Background(), sess, &InboundFrame{
		Type:    FrameTypeGroupMessage,
		Content: "coep only",
		GroupID: groupID.Hex(),
	}))

	assert.Empty(t, otherTenantConn.sentFrames())
}

func TestRouteUnknownFrameTypeIgnored(t *testing.T) {
	f := newRouterFixture()
	sess := f.session("coep", primitive.NewObjectID(), "Asha")

	err := f.router.Route(context.Background(), sess, &InboundFrame{Type: "typing_indicator"})
	assert.NoError(t, err)
	assert.Empty(t, f.messages.inserted)
}

func TestRouteDirectMessageSendTimeoutDropsPeerOnly(t *testing.T) {
	f := newRouterFixture()
	senderID := primitive.NewObjectID()
	receiverID := primitive.NewObjectID()

	senderConn := &fakeConn{}
	stalled := &fakeConn{sendErr: ErrSendTimeout}
	f.registry.Register(Key{TenantID: "coep", UserID: senderID.Hex()}, senderConn)
	f.registry.Register(Key{TenantID: "coep", UserID: receiverID.Hex()}, stalled)

	sess := f.session("coep", senderID, "Asha")
	err := f.router.Route(context.Background(), sess, &InboundFrame{
		Type:       FrameTypeMessage,
		Content:    "hello",
		ReceiverID: receiverID.Hex(),
	})
	require.NoError(t, err, "a stalled peer never fails the sender")

	assert.True(t, stalled.isClosed(), "timed-out peer is treated as disconnected")
	assert.Len(t, senderConn.sentFrames(), 1, "echo still delivered")
}
