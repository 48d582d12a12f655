package broadcast

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/xelth-com/loci/internal/metrics"
	"github.com/xelth-com/loci/internal/models"
)

const (
	// TopicPrefix prefixes every location channel
	TopicPrefix = "loci.mobile-location."
	// AllLocationsTopic is the shared channel receiving every location update
	AllLocationsTopic = TopicPrefix + "common"
)

// LocationTopic returns the channel name of one location
func LocationTopic(locationID string) string {
	return TopicPrefix + locationID
}

// IsLocationTopic reports whether topic belongs to this subsystem
func IsLocationTopic(topic string) bool {
	return strings.HasPrefix(topic, TopicPrefix)
}

// Publisher fans a payload out to every subscriber of topic.
// Implementations must not block on slow subscribers and never fail the caller.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// LocationMessage is sent on the per-location channel
type LocationMessage struct {
	Geometry *models.Geometry `json:"geometry"`
	Address  string           `json:"address"`
}

// AllLocationsMessage is sent on the shared channel; subscribers are not
// scoped to one location so it carries the identifying fields too
type AllLocationsMessage struct {
	ID       string              `json:"id"`
	Geometry *models.Geometry    `json:"geometry"`
	Address  string              `json:"address"`
	Name     string              `json:"name"`
	Type     models.LocationType `json:"type"`
	IsMobile bool                `json:"is_mobile"`
}

// Broadcaster turns location saves into channel messages
type Broadcaster struct {
	pub Publisher
}

// NewBroadcaster wraps pub
func NewBroadcaster(pub Publisher) *Broadcaster {
	return &Broadcaster{pub: pub}
}

// LocationSaved publishes an update of loc. Creations and locations
// without geometry produce no messages.
func (b *Broadcaster) LocationSaved(loc *models.Location, created bool) {
	if b == nil || b.pub == nil || loc == nil {
		return
	}
	if created || loc.Geometry.IsEmpty() {
		return
	}

	single, err := json.Marshal(LocationMessage{
		Geometry: loc.Geometry,
		Address:  loc.Address,
	})
	if err != nil {
		log.Printf("Error marshaling location message: %v", err)
		return
	}
	all, err := json.Marshal(AllLocationsMessage{
		ID:       loc.ID,
		Geometry: loc.Geometry,
		Address:  loc.Address,
		Name:     loc.Name,
		Type:     loc.Type,
		IsMobile: loc.IsMobile,
	})
	if err != nil {
		log.Printf("Error marshaling location message: %v", err)
		return
	}

	b.pub.Publish(LocationTopic(loc.ID), single)
	metrics.BroadcastsTotal.WithLabelValues("location").Inc()
	b.pub.Publish(AllLocationsTopic, all)
	metrics.BroadcastsTotal.WithLabelValues("all").Inc()
}
