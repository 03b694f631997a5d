package toolsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
)

// tagGroupsPath lists all song tag groups with their tags, used to resolve
// tag names to IDs.
const tagGroupsPath = "/services/v2/tag_groups?include=tags&filter=song"

func (s *Server) registerSongTools() {
	s.mcp.AddTool(mcp.NewTool("get_songs",
		mcp.WithDescription("Fetch the list of visible songs from Planning Center Online."),
	), s.handleGetSongs)

	s.mcp.AddTool(mcp.NewTool("get_song",
		mcp.WithDescription("Fetch details for a specific song."),
		mcp.WithString("song_id", mcp.Required(), mcp.Description("The ID of the song.")),
	), s.handleGetSong)

	s.mcp.AddTool(mcp.NewTool("find_song_by_title",
		mcp.WithDescription("Find songs by title."),
		mcp.WithString("title", mcp.Required(), mcp.Description("The title of the song to search for.")),
	), s.handleFindSongByTitle)

	s.mcp.AddTool(mcp.NewTool("create_song",
		mcp.WithDescription("Create a new song in Planning Center Online."),
		mcp.WithString("title", mcp.Required(), mcp.Description("The title of the song.")),
		mcp.WithString("ccli", mcp.Description("The CCLI number for the song.")),
	), s.handleCreateSong)

	s.mcp.AddTool(mcp.NewTool("get_all_arrangements_for_song",
		mcp.WithDescription("Get all arrangements for a particular song."),
		mcp.WithString("song_id", mcp.Required(), mcp.Description("The ID for the song.")),
	), s.handleGetArrangements)

	s.mcp.AddTool(mcp.NewTool("get_arrangement_for_song",
		mcp.WithDescription("Get a particular arrangement of a song."),
		mcp.WithString("song_id", mcp.Required(), mcp.Description("The ID for the song.")),
		mcp.WithString("arrangement_id", mcp.Required(), mcp.Description("The ID for the arrangement within the song.")),
	), s.handleGetArrangement)

	s.mcp.AddTool(mcp.NewTool("get_keys_for_arrangement_of_song",
		mcp.WithDescription("Get the keys available for a particular arrangement of a song."),
		mcp.WithString("song_id", mcp.Required(), mcp.Description("The ID for the song.")),
		mcp.WithString("arrangement_id", mcp.Required(), mcp.Description("The ID for the arrangement within the song.")),
	), s.handleGetArrangementKeys)

	s.mcp.AddTool(mcp.NewTool("assign_tags_to_song",
		mcp.WithDescription("Assign tags to a specific song. Tag names are resolved against the song tag groups."),
		mcp.WithString("song_id", mcp.Required(), mcp.Description("The ID of the song.")),
		mcp.WithArray("tag_names", mcp.Required(), mcp.WithStringItems(), mcp.Description("List of tag names to assign to the song.")),
	), s.handleAssignTagsToSong)

	s.mcp.AddTool(mcp.NewTool("find_songs_by_tags",
		mcp.WithDescription("Find songs that have all of the specified tags."),
		mcp.WithArray("tag_names", mcp.Required(), mcp.WithStringItems(), mcp.Description("List of tag names to filter songs by. Songs must have all specified tags.")),
	), s.handleFindSongsByTags)
}

func (s *Server) handleGetSongs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/songs?per_page=200&where[hidden]=false")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleGetSong(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	songID, err := request.RequireString("song_id")
	if err != nil {
		return mcp.NewToolResultError("song_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/songs/"+songID)
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleFindSongByTitle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/songs?where[title]="+url.QueryEscape(title)+"&where[hidden]=false")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleCreateSong(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title argument is required"), nil
	}

	attributes := map[string]any{"title": title}
	if ccli, ok := optString(request, "ccli"); ok {
		attributes["ccli_number"] = ccli
	}

	doc, err := s.gateway.Post(ctx, sessionID, "/services/v2/songs", pco.Body("Song", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleGetArrangements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	songID, err := request.RequireString("song_id")
	if err != nil {
		return mcp.NewToolResultError("song_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/songs/"+songID+"/arrangements")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleGetArrangement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	songID, err := request.RequireString("song_id")
	if err != nil {
		return mcp.NewToolResultError("song_id argument is required"), nil
	}
	arrangementID, err := request.RequireString("arrangement_id")
	if err != nil {
		return mcp.NewToolResultError("arrangement_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/songs/"+songID+"/arrangements/"+arrangementID)
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleGetArrangementKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	songID, err := request.RequireString("song_id")
	if err != nil {
		return mcp.NewToolResultError("song_id argument is required"), nil
	}
	arrangementID, err := request.RequireString("arrangement_id")
	if err != nil {
		return mcp.NewToolResultError("arrangement_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/songs/"+songID+"/arrangements/"+arrangementID+"/keys")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleAssignTagsToSong(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	songID, err := request.RequireString("song_id")
	if err != nil {
		return mcp.NewToolResultError("song_id argument is required"), nil
	}
	tagNames, err := stringList(request, "tag_names")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tagIDs, err := s.resolveTagIDs(ctx, sessionID, tagNames)
	if err != nil {
		return s.errorResult(err), nil
	}
	if len(tagIDs) == 0 {
		return mcp.NewToolResultError("No matching tags found"), nil
	}

	tagData := make([]map[string]any, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		tagData = append(tagData, map[string]any{"type": "Tag", "id": tagID})
	}
	body := map[string]any{
		"data": map[string]any{
			"type":       "TagAssignment",
			"attributes": map[string]any{},
			"relationships": map[string]any{
				"tags": map[string]any{"data": tagData},
			},
		},
	}
	if _, err := s.gateway.Post(ctx, sessionID, "/services/v2/songs/"+songID+"/assign_tags", body); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Successfully assigned %d tag(s) to song %s", len(tagIDs), songID)), nil
}

func (s *Server) handleFindSongsByTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	tagNames, err := stringList(request, "tag_names")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tagIDs, err := s.resolveTagIDs(ctx, sessionID, tagNames)
	if err != nil {
		return s.errorResult(err), nil
	}
	if len(tagIDs) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}

	query := "/services/v2/songs?per_page=200&where[hidden]=false"
	for _, tagID := range tagIDs {
		query += "&where[song_tag_ids]=" + tagID
	}
	doc, err := s.gateway.Get(ctx, sessionID, query)
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

// resolveTagIDs maps tag names (case-insensitive) to tag IDs using the song
// tag groups. Names with no match are skipped.
func (s *Server) resolveTagIDs(ctx context.Context, sessionID string, tagNames []string) ([]string, error) {
	doc, err := s.gateway.Get(ctx, sessionID, tagGroupsPath)
	if err != nil {
		return nil, err
	}

	var included []struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	}
	if len(doc.Included) > 0 {
		if err := json.Unmarshal(doc.Included, &included); err != nil {
			return nil, fmt.Errorf("failed to decode tag groups response: %w", err)
		}
	}

	var tagIDs []string
	for _, tagName := range tagNames {
		for _, resource := range included {
			if resource.Type == "Tag" && strings.EqualFold(resource.Attributes.Name, tagName) {
				tagIDs = append(tagIDs, resource.ID)
				break
			}
		}
	}
	return tagIDs, nil
}
