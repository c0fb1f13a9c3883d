package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiji/fiji-sub027/internal/journal"
	"github.com/fiji/fiji-sub027/internal/model"
	"github.com/fiji/fiji-sub027/internal/spot"
	"github.com/fiji/fiji-sub027/internal/testutil"
	"github.com/fiji/fiji-sub027/internal/version"
)

// splitModel builds one track with a division (a -> b, a -> c) and a lone
// spot d.
func splitModel(t *testing.T) (*model.Model, [4]*spot.Spot) {
	t.Helper()
	m := model.New(model.DefaultConfig())
	var s [4]*spot.Spot
	m.BeginUpdate()
	for i, f := range []int{0, 1, 1, 2} {
		s[i] = m.NewSpot(float64(i), 0, 0, 1, float64(i))
		require.NoError(t, m.AddSpotTo(s[i], f))
	}
	_, err := m.AddEdge(s[0], s[1], 1)
	require.NoError(t, err)
	_, err = m.AddEdge(s[0], s[2], 2)
	require.NoError(t, err)
	require.NoError(t, m.EndUpdate())
	return m, s
}

func publishedServer(t *testing.T) (http.Handler, [4]*spot.Spot) {
	t.Helper()
	m, s := splitModel(t)
	srv := NewServer(nil)
	srv.Publish(m)
	return srv.ServeMux(), s
}

// ---------------------------------------------------------------------------
// Model and tracks
// ---------------------------------------------------------------------------

func TestServer_NothingPublished(t *testing.T) {
	h := NewServer(nil).ServeMux()

	for _, path := range []string{"/api/model", "/api/tracks", "/api/tracks/0", "/api/spots"} {
		rec := testutil.ServeJSON(t, h, http.MethodGet, path, nil)
		testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
	}

	var health map[string]bool
	rec := testutil.ServeJSON(t, h, http.MethodGet, "/healthz", &health)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, map[string]bool{"ok": true, "published": false}, health)
}

func TestServer_Model(t *testing.T) {
	h, _ := publishedServer(t)

	var sum ModelSummary
	rec := testutil.ServeJSON(t, h, http.MethodGet, "/api/model", &sum)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, 4, sum.NSpots)
	assert.Equal(t, 2, sum.NEdges)
	assert.Equal(t, 2, sum.NTracks)
	assert.Equal(t, 2, sum.NVisible)
	assert.Equal(t, []int{0, 1, 2}, sum.Frames)
	assert.NotEmpty(t, sum.ModelID)
}

func TestServer_TrackTable(t *testing.T) {
	m, _ := splitModel(t)
	require.True(t, m.SetTrackVisibility(1, false))
	srv := NewServer(nil)
	srv.Publish(m)
	h := srv.ServeMux()

	var all []TrackSummary
	testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks", &all)
	require.Len(t, all, 2)
	assert.Equal(t, 3, all[0].NSpots)
	assert.Equal(t, 2, all[0].NEdges)
	assert.Equal(t, 1.0, all[0].Features["NUMBER_SPLITS"])
	assert.Equal(t, m.TrackName(0), all[0].Name)
	assert.False(t, all[1].Visible)

	var visible []TrackSummary
	testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks?visible=true", &visible)
	require.Len(t, visible, 1)
	assert.Equal(t, 0, visible[0].Index)

	rec := testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks?visible=maybe", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestServer_TrackDetail(t *testing.T) {
	h, s := publishedServer(t)

	var d TrackDetail
	rec := testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks/0", &d)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	require.Len(t, d.Spots, 3)
	assert.Equal(t, s[0].ID(), d.Spots[0].ID)
	assert.Equal(t, []EdgeView{
		{Source: s[0].ID(), Target: s[1].ID(), Weight: 1},
		{Source: s[0].ID(), Target: s[2].ID(), Weight: 2},
	}, d.Edges)

	var lone TrackDetail
	testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks/1", &lone)
	assert.Empty(t, lone.Edges)
	assert.NotNil(t, lone.Edges)

	rec = testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks/7", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	rec = testutil.ServeJSON(t, h, http.MethodGet, "/api/tracks/x", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestServer_Spots(t *testing.T) {
	h, s := publishedServer(t)

	var frame1 []SpotView
	testutil.ServeJSON(t, h, http.MethodGet, "/api/spots?frame=1", &frame1)
	require.Len(t, frame1, 2)
	assert.Equal(t, s[1].ID(), frame1[0].ID)
	assert.Equal(t, 1, frame1[0].Frame)
	assert.Equal(t, 1.0, frame1[0].Features[string(spot.Quality)])

	var all []SpotView
	testutil.ServeJSON(t, h, http.MethodGet, "/api/spots", &all)
	assert.Len(t, all, 4)

	var none []SpotView
	testutil.ServeJSON(t, h, http.MethodGet, "/api/spots?frame=9", &none)
	assert.Empty(t, none)

	rec := testutil.ServeJSON(t, h, http.MethodGet, "/api/spots?frame=x", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h, _ := publishedServer(t)
	rec := testutil.ServeJSON(t, h, http.MethodPost, "/api/tracks", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestServer_PublishReplacesSnapshot(t *testing.T) {
	m, s := splitModel(t)
	srv := NewServer(nil)
	srv.Publish(m)
	h := srv.ServeMux()

	require.NoError(t, m.RemoveSpot(s[3]))

	var before ModelSummary
	testutil.ServeJSON(t, h, http.MethodGet, "/api/model", &before)
	assert.Equal(t, 4, before.NSpots)

	srv.Publish(m)
	var after ModelSummary
	testutil.ServeJSON(t, h, http.MethodGet, "/api/model", &after)
	assert.Equal(t, 3, after.NSpots)
	assert.Equal(t, 1, after.NTracks)
}

func TestServer_Version(t *testing.T) {
	h, _ := publishedServer(t)
	var info version.Info
	testutil.ServeJSON(t, h, http.MethodGet, "/api/version", &info)
	assert.Equal(t, version.Get(), info)
}

func TestServer_Metrics(t *testing.T) {
	h, _ := publishedServer(t)
	rec := testutil.ServeJSON(t, h, http.MethodGet, "/metrics", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "trackgraph_commits_total")
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

func TestServer_JournalDisabled(t *testing.T) {
	h, _ := publishedServer(t)
	rec := testutil.ServeJSON(t, h, http.MethodGet, "/api/journal/sessions", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	assert.Equal(t, "journal not enabled", testutil.ErrorMessage(t, rec))
}

func TestServer_Journal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	m := model.New(model.DefaultConfig())
	session, _, err := j.Attach(m)
	require.NoError(t, err)
	require.NoError(t, m.AddSpotTo(m.NewSpot(0, 0, 0, 1, 1), 0))

	srv := NewServer(j)
	srv.Publish(m)
	h := srv.ServeMux()

	var sessions []journal.Session
	testutil.ServeJSON(t, h, http.MethodGet, "/api/journal/sessions", &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, session, sessions[0].ID)
	assert.Equal(t, m.ID(), sessions[0].ModelID)

	var entries []journal.Entry
	rec := testutil.ServeJSON(t, h, http.MethodGet, fmt.Sprintf("/api/journal/sessions/%s/events", session), &entries)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	require.Len(t, entries, 1)
	assert.Equal(t, "ADDED", entries[0].Spots[0].Flag)

	rec = testutil.ServeJSON(t, h, http.MethodGet, "/api/journal/sessions/not-a-uuid/events", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	rec = testutil.ServeJSON(t, h, http.MethodGet, fmt.Sprintf("/api/journal/sessions/%s", session), nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}
