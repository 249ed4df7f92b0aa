package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"tubequeue/domain/model"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := NewPubSub(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestQueuePublisher(t *testing.T) {
	srv, client := newTestClient(t)
	ctx := context.Background()
	publisher := NewQueuePublisher(client, "queue-events").(*QueuePublisher)
	defer publisher.Stop()

	event := &model.QueueEvent{
		Type:       model.EventSongAdded,
		PlaylistID: "PL1",
		Entry:      &model.QueueEntry{PlaylistID: "PL1", Video: model.Video{ID: "v1"}, State: model.QueueEntryAdded},
	}
	require.NoError(t, publisher.Publish(ctx, event))
	require.NoError(t, publisher.Publish(ctx, &model.QueueEvent{Type: model.EventQueueCleared, PlaylistID: "PL1"}))

	msgs := srv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.EventSongAdded, msgs[0].Attributes["type"])
	assert.Equal(t, "PL1", msgs[0].Attributes["playlistId"])

	var got model.QueueEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "v1", got.Entry.ID)
}

func TestNewPubSubRequiresProject(t *testing.T) {
	_, err := NewPubSub(context.Background(), "")
	assert.Error(t, err)
}
