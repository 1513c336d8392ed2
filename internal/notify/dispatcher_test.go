package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/queue"
	"github.com/leakwatch/leakwatch/internal/repository"
	"github.com/leakwatch/leakwatch/internal/ws"
)

type fakeChannelStore struct {
	channel model.Channel
	plumber *repository.PlumberSummary
	err     error
}

func (f *fakeChannelStore) GetByChannelIDWithPlumber(ctx context.Context, channelID string) (model.Channel, *repository.PlumberSummary, error) {
	if f.err != nil {
		return model.Channel{}, nil, f.err
	}
	return f.channel, f.plumber, nil
}

type fakeNotificationStore struct {
	created   []*model.Notification
	latest    string
	nextID    uint64
	createErr error
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	n.ID = f.nextID
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationStore) LatestFingerprint(ctx context.Context, channelID uint64) (string, error) {
	return f.latest, nil
}

type fakePusher struct {
	rooms    []string
	messages []ws.Message
}

func (f *fakePusher) Publish(room string, msg ws.Message) {
	f.rooms = append(f.rooms, room)
	f.messages = append(f.messages, msg)
}

func solvedTime(v float64) *float64 { return &v }

func problemChannel() model.Channel {
	return model.Channel{
		ID:        5,
		ChannelID: "CH-001",
		Name:      "North Basin",
		Location:  "Sector 4",
		ManagerID: 2,
		Status:    model.ChannelStatusUnsolved,
		WaterLost: 12.5,
	}
}

func TestDispatchManualMissingFields(t *testing.T) {
	d := NewDispatcher(&fakeChannelStore{}, &fakeNotificationStore{}, nil, nil)

	_, err := d.DispatchManual(context.Background(), "", "leak")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = d.DispatchManual(context.Background(), "CH-001", "")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestDispatchManualUnknownChannel(t *testing.T) {
	d := NewDispatcher(&fakeChannelStore{err: repository.ErrNotFound}, &fakeNotificationStore{}, nil, nil)

	_, err := d.DispatchManual(context.Background(), "CH-404", "leak")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDispatchManualUnassignedPlumber(t *testing.T) {
	d := NewDispatcher(&fakeChannelStore{channel: problemChannel()}, &fakeNotificationStore{}, nil, nil)

	_, err := d.DispatchManual(context.Background(), "CH-001", "leak")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDispatchManualSkipsProblemGate(t *testing.T) {
	// a solved channel with no water loss still dispatches on the manual path
	ch := problemChannel()
	ch.Status = model.ChannelStatusSolved
	ch.WaterLost = 0
	ch.SolveTime = solvedTime(3.5)

	store := &fakeNotificationStore{}
	hub := &fakePusher{}
	d := NewDispatcher(&fakeChannelStore{channel: ch, plumber: &repository.PlumberSummary{ID: 31, Name: "Ana"}}, store, hub, nil)

	payload, err := d.DispatchManual(context.Background(), "CH-001", "check the valve")
	require.NoError(t, err)
	assert.Equal(t, "check the valve", payload.Message)
	assert.Equal(t, "CH-001", payload.Channel.ChannelID)

	require.Len(t, store.created, 1)
	assert.Equal(t, uint64(31), store.created[0].PlumberID)
	require.Len(t, hub.rooms, 1)
	assert.Equal(t, "31", hub.rooms[0])
	assert.Equal(t, ws.MessageTypeNotification, hub.messages[0].Type)
}

func TestDispatchOnUpdateSilentNoOps(t *testing.T) {
	solved := problemChannel()
	solved.Status = model.ChannelStatusSolved
	solved.WaterLost = 0
	solved.SolveTime = solvedTime(1)

	cases := map[string]*fakeChannelStore{
		"unknown channel":    {err: repository.ErrNotFound},
		"unassigned plumber": {channel: problemChannel()},
		"gate closed":        {channel: solved, plumber: &repository.PlumberSummary{ID: 31}},
	}
	for name, channels := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeNotificationStore{}
			d := NewDispatcher(channels, store, &fakePusher{}, nil)

			sent, err := d.DispatchOnUpdate(context.Background(), "CH-001")
			require.NoError(t, err)
			assert.False(t, sent)
			assert.Empty(t, store.created)
		})
	}
}

func TestDispatchOnUpdateFiresAndRefires(t *testing.T) {
	ch := problemChannel()
	channels := &fakeChannelStore{channel: ch, plumber: &repository.PlumberSummary{ID: 31, Name: "Ana"}}
	store := &fakeNotificationStore{latest: Fingerprint(&ch)}
	hub := &fakePusher{}
	d := NewDispatcher(channels, store, hub, nil)

	// dedup disabled: an unchanged state still re-fires
	sent, err := d.DispatchOnUpdate(context.Background(), "CH-001")
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = d.DispatchOnUpdate(context.Background(), "CH-001")
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, store.created, 2)
	assert.Contains(t, store.created[0].Message, "North Basin")
	assert.Contains(t, store.created[0].Message, "CH-001")
	assert.Equal(t, []string{"31", "31"}, hub.rooms)
}

func TestDispatchOnUpdateDedupSuppressesRepeat(t *testing.T) {
	ch := problemChannel()
	channels := &fakeChannelStore{channel: ch, plumber: &repository.PlumberSummary{ID: 31}}
	store := &fakeNotificationStore{latest: Fingerprint(&ch)}
	d := NewDispatcher(channels, store, &fakePusher{}, nil)
	d.Dedup = true

	sent, err := d.DispatchOnUpdate(context.Background(), "CH-001")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, store.created)

	// state change produces a new fingerprint and fires again
	channels.channel.WaterLost = 99
	sent, err = d.DispatchOnUpdate(context.Background(), "CH-001")
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, store.created, 1)
}

func TestDispatchAuditFailureIsBestEffort(t *testing.T) {
	ch := problemChannel()
	audit := func(ctx context.Context, ev queue.NotificationDispatchedEvent) error {
		return errors.New("broker down")
	}
	d := NewDispatcher(&fakeChannelStore{channel: ch, plumber: &repository.PlumberSummary{ID: 31}},
		&fakeNotificationStore{}, &fakePusher{}, audit)

	sent, err := d.DispatchOnUpdate(context.Background(), "CH-001")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestFingerprintTracksState(t *testing.T) {
	a := problemChannel()
	b := problemChannel()
	assert.Equal(t, Fingerprint(&a), Fingerprint(&b))

	b.WaterLost = 13
	assert.NotEqual(t, Fingerprint(&a), Fingerprint(&b))

	b = problemChannel()
	b.SolveTime = solvedTime(2)
	assert.NotEqual(t, Fingerprint(&a), Fingerprint(&b))
}
