package broadcast

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/loci/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	topics []string
	msgs   [][]byte
}

func (r *recorder) Publish(topic string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.msgs = append(r.msgs, payload)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "loci.mobile-location.abc", LocationTopic("abc"))
	assert.Equal(t, "loci.mobile-location.common", AllLocationsTopic)
	assert.True(t, IsLocationTopic(AllLocationsTopic))
	assert.False(t, IsLocationTopic("other.abc"))
}

func TestLocationSaved(t *testing.T) {
	loc := &models.Location{
		ID:       "loc-1",
		Name:     "van",
		Type:     models.LocationOutdoor,
		IsMobile: true,
		Address:  "Roma",
		Geometry: models.NewPoint(12.5, 41.9),
	}

	t.Run("created", func(t *testing.T) {
		rec := &recorder{}
		NewBroadcaster(rec).LocationSaved(loc, true)
		assert.Empty(t, rec.topics)
	})

	t.Run("no geometry", func(t *testing.T) {
		rec := &recorder{}
		NewBroadcaster(rec).LocationSaved(&models.Location{ID: "x", Type: models.LocationOutdoor}, false)
		assert.Empty(t, rec.topics)
	})

	t.Run("updated", func(t *testing.T) {
		rec := &recorder{}
		NewBroadcaster(rec).LocationSaved(loc, false)
		require.Equal(t, []string{LocationTopic("loc-1"), AllLocationsTopic}, rec.topics)

		var single map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.msgs[0], &single))
		assert.Len(t, single, 2)
		assert.Equal(t, "Roma", single["address"])
		assert.Equal(t, "Point", single["geometry"].(map[string]interface{})["type"])

		var all map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.msgs[1], &all))
		assert.Equal(t, "loc-1", all["id"])
		assert.Equal(t, "van", all["name"])
		assert.Equal(t, "outdoor", all["type"])
		assert.Equal(t, true, all["is_mobile"])
	})

	t.Run("nil receivers", func(t *testing.T) {
		var b *Broadcaster
		b.LocationSaved(loc, false)
		NewBroadcaster(nil).LocationSaved(loc, false)
		NewBroadcaster(&recorder{}).LocationSaved(nil, false)
	})
}

func TestRedisRelayDropsWhenQueueFull(t *testing.T) {
	relay := NewRedisRelay(nil, &recorder{})
	for i := 0; i < relayQueueSize+10; i++ {
		relay.Publish(AllLocationsTopic, []byte("{}"))
	}
	assert.Len(t, relay.queue, relayQueueSize)
}

func TestOpenRedis(t *testing.T) {
	assert.Nil(t, OpenRedis("", "", 0))
	client := OpenRedis("localhost:6379", "", 1)
	require.NotNil(t, client)
	assert.Equal(t, 1, client.Options().DB)
	client.Close()
}

func TestRedisRelayDeliversLocationTopicsOnly(t *testing.T) {
	rec := &recorder{}
	relay := NewRedisRelay(nil, rec)

	relay.deliver(LocationTopic("loc-1"), `{"address":"Roma"}`)
	relay.deliver("other.loc-1", `{}`)
	relay.deliver(AllLocationsTopic, `{"id":"loc-1"}`)

	assert.Equal(t, []string{LocationTopic("loc-1"), AllLocationsTopic}, rec.topics)
	assert.Equal(t, `{"address":"Roma"}`, string(rec.msgs[0]))
}
