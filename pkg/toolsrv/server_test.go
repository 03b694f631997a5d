package toolsrv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pco-tools/pco-mcp-server/pkg/gateway"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
	"github.com/pco-tools/pco-mcp-server/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct{}

func (staticTokens) EnsureFresh(ctx context.Context, sessionID string) (string, error) {
	return "token-for-" + sessionID, nil
}

func (staticTokens) ForceRefresh(ctx context.Context, sessionID string) (string, error) {
	return "token-for-" + sessionID, nil
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(gateway.New(staticTokens{}, pco.NewClient(ts.URL)), "http://localhost:8000/auth/login")
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestToolRequiresSession(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called without a session")
	})

	result, err := s.handleGetServiceTypes(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, "authentication_required", payload["error"])
	assert.Equal(t, "http://localhost:8000/auth/login", payload["login_url"])
}

func TestGetServiceTypesPassesDataThrough(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/v2/service_types", r.URL.Path)
		assert.Equal(t, "Bearer token-for-session-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data": [{"id": "1", "type": "ServiceType"}]}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleGetServiceTypes(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `[{"id": "1", "type": "ServiceType"}]`, resultText(t, result))
}

func TestCreateServiceTypeBuildsBody(t *testing.T) {
	var gotBody []byte
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleCreateServiceType(ctx, callRequest(map[string]any{
		"name":     "Sunday Morning",
		"sequence": float64(2),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"data": {"type": "ServiceType", "attributes": {"name": "Sunday Morning", "sequence": 2}}}`, string(gotBody))
}

func TestUpdatePlanOmitsMissingAttributes(t *testing.T) {
	var gotBody []byte
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/services/v2/service_types/5/plans/9", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"data": {"id": "9"}}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleUpdatePlan(ctx, callRequest(map[string]any{
		"service_type_id": "5",
		"plan_id":         "9",
		"title":           "Easter",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"data": {"type": "Plan", "attributes": {"title": "Easter"}}}`, string(gotBody))
}

func TestMissingRequiredArgument(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleGetPlans(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "service_type_id")
}

func TestReorderPlanItemsBody(t *testing.T) {
	var gotBody []byte
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/v2/service_types/5/plans/9/item_reorder", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleReorderPlanItems(ctx, callRequest(map[string]any{
		"service_type_id": "5",
		"plan_id":         "9",
		"item_ids":        []any{"c", "a", "b"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"data": {"type": "ItemReorder", "attributes": {"sequence": ["c", "a", "b"]}}}`, string(gotBody))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, true, payload["success"])
}

func TestAssignTeamMemberRelationship(t *testing.T) {
	var gotBody []byte
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"data": {"id": "77"}}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleAssignTeamMember(ctx, callRequest(map[string]any{
		"service_type_id":    "5",
		"plan_id":            "9",
		"person_id":          "42",
		"team_position_name": "Vocals",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{
		"data": {
			"type": "PlanPerson",
			"attributes": {"team_position_name": "Vocals"},
			"relationships": {
				"person": {"data": {"type": "Person", "id": "42"}}
			}
		}
	}`, string(gotBody))
}

func TestFindSongByTitleEscapesQuery(t *testing.T) {
	var gotQuery string
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleFindSongByTitle(ctx, callRequest(map[string]any{
		"title": "Great & Mighty",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, gotQuery, "where[title]=Great+%26+Mighty")
}

func TestAssignTagsResolvesNames(t *testing.T) {
	var assignBody []byte
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/services/v2/tag_groups":
			_, _ = w.Write([]byte(`{
				"data": [],
				"included": [
					{"type": "Tag", "id": "10", "attributes": {"name": "Fast"}},
					{"type": "Tag", "id": "11", "attributes": {"name": "Hymn"}}
				]
			}`))
		case "/services/v2/songs/3/assign_tags":
			assignBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleAssignTagsToSong(ctx, callRequest(map[string]any{
		"song_id":   "3",
		"tag_names": []any{"hymn"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{
		"data": {
			"type": "TagAssignment",
			"attributes": {},
			"relationships": {"tags": {"data": [{"type": "Tag", "id": "11"}]}}
		}
	}`, string(assignBody))
}

func TestAssignTagsNoMatches(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [], "included": []}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleAssignTagsToSong(ctx, callRequest(map[string]any{
		"song_id":   "3",
		"tag_names": []any{"nope"},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "No matching tags found")
}

func TestFindSongsByTagsBuildsFilter(t *testing.T) {
	var songsQuery string
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/services/v2/tag_groups":
			_, _ = w.Write([]byte(`{
				"data": [],
				"included": [
					{"type": "Tag", "id": "10", "attributes": {"name": "Fast"}},
					{"type": "Tag", "id": "11", "attributes": {"name": "Hymn"}}
				]
			}`))
		case "/services/v2/songs":
			songsQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`{"data": [{"id": "3"}]}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleFindSongsByTags(ctx, callRequest(map[string]any{
		"tag_names": []any{"Fast", "Hymn"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, songsQuery, "where[song_tag_ids]=10")
	assert.Contains(t, songsQuery, "where[song_tag_ids]=11")
	assert.JSONEq(t, `[{"id": "3"}]`, resultText(t, result))
}

func TestUpstreamErrorSurfacesStatus(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors": [{"detail": "name can't be blank"}]}`))
	})

	ctx := session.WithID(context.Background(), "session-1")
	result, err := s.handleCreateServiceType(ctx, callRequest(map[string]any{"name": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "status 422")
	assert.Contains(t, text, "name can't be blank")
}
