package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/loci/internal/broadcast"
	"github.com/xelth-com/loci/internal/database/dbtest"
	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/utils"
)

const testSecret = "test-secret"

type gatewayFixture struct {
	hub    *Hub
	server *httptest.Server
	loc    *models.Location
	tokens map[string]string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	db := dbtest.Open(t)
	hub := startHub(t)

	loc := &models.Location{Name: "HQ", Type: models.LocationOutdoor, Geometry: models.NewPoint(12.5, 41.9)}
	require.NoError(t, db.Create(loc).Error)

	users := map[string]*models.UserAuth{
		"regular":   {Username: "regular", Email: "regular@example.com", Password: "x", IsActive: true},
		"staff":     {Username: "staff", Email: "staff@example.com", Password: "x", IsActive: true, IsStaff: true},
		"viewer":    {Username: "viewer", Email: "viewer@example.com", Password: "x", IsActive: true, IsStaff: true, Permissions: []string{models.PermViewLocation}},
		"changer":   {Username: "changer", Email: "changer@example.com", Password: "x", IsActive: true, IsStaff: true, Permissions: []string{models.PermChangeLocation}},
		"superuser": {Username: "superuser", Email: "super@example.com", Password: "x", IsActive: true, IsSuperuser: true},
	}
	tokens := make(map[string]string)
	for name, u := range users {
		require.NoError(t, db.Create(u).Error)
		pair, err := utils.IssueTokens(u, testSecret)
		require.NoError(t, err)
		tokens[name] = pair.AccessToken
	}

	gw := NewGateway(hub, GormDirectory{DB: db}, testSecret)
	r := mux.NewRouter()
	r.HandleFunc("/ws/loci/location/all/", gw.ServeAll)
	r.HandleFunc("/ws/loci/location/{id}/", gw.ServeLocation)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &gatewayFixture{hub: hub, server: server, loc: loc, tokens: tokens}
}

func (f *gatewayFixture) dial(t *testing.T, path, user string) (*gorillaws.Conn, int) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	header := http.Header{}
	if token, ok := f.tokens[user]; ok {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, header)
	if err != nil {
		require.NotNil(t, resp, err)
		return nil, resp.StatusCode
	}
	t.Cleanup(func() { conn.Close() })
	return conn, resp.StatusCode
}

func TestGatewayAuthorization(t *testing.T) {
	f := newGatewayFixture(t)
	single := "/ws/loci/location/" + f.loc.ID + "/"
	all := "/ws/loci/location/all/"

	tests := []struct {
		user string
		want int
	}{
		{"", http.StatusForbidden},
		{"regular", http.StatusForbidden},
		{"staff", http.StatusForbidden},
		{"viewer", http.StatusSwitchingProtocols},
		{"changer", http.StatusSwitchingProtocols},
		{"superuser", http.StatusSwitchingProtocols},
	}
	for _, tt := range tests {
		t.Run("user="+tt.user, func(t *testing.T) {
			_, code := f.dial(t, single, tt.user)
			assert.Equal(t, tt.want, code, "single location")
			_, code = f.dial(t, all, tt.user)
			assert.Equal(t, tt.want, code, "all locations")
		})
	}
}

func TestGatewayUnknownLocation(t *testing.T) {
	f := newGatewayFixture(t)
	_, code := f.dial(t, "/ws/loci/location/00000000-0000-0000-0000-000000000000/", "superuser")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestGatewayTokenInQuery(t *testing.T) {
	f := newGatewayFixture(t)
	_, code := f.dial(t, "/ws/loci/location/all/?token="+f.tokens["viewer"], "")
	assert.Equal(t, http.StatusSwitchingProtocols, code)
}

func TestGatewayDeliversBroadcasts(t *testing.T) {
	f := newGatewayFixture(t)
	single, _ := f.dial(t, "/ws/loci/location/"+f.loc.ID+"/", "viewer")
	all, _ := f.dial(t, "/ws/loci/location/all/", "viewer")
	require.NotNil(t, single)
	require.NotNil(t, all)

	topic := broadcast.LocationTopic(f.loc.ID)
	require.Eventually(t, func() bool {
		return f.hub.Subscribers(topic) == 1 && f.hub.Subscribers(broadcast.AllLocationsTopic) == 1
	}, time.Second, 5*time.Millisecond)

	f.loc.Address = "Piazza Venezia"
	broadcast.NewBroadcaster(f.hub).LocationSaved(f.loc, false)

	var msg broadcast.LocationMessage
	single.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, single.ReadJSON(&msg))
	assert.Equal(t, "Piazza Venezia", msg.Address)

	var allMsg broadcast.AllLocationsMessage
	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, all.ReadJSON(&allMsg))
	assert.Equal(t, f.loc.ID, allMsg.ID)
	assert.Equal(t, "HQ", allMsg.Name)

	// closing the connection deregisters it
	single.Close()
	require.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGormDirectory(t *testing.T) {
	db := dbtest.Open(t)
	dir := GormDirectory{DB: db}
	ok, err := dir.LocationExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
