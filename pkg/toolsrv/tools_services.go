package toolsrv

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
)

func (s *Server) registerServiceTools() {
	s.mcp.AddTool(mcp.NewTool("get_service_types",
		mcp.WithDescription("Fetch a list of service types from Planning Center Online."),
	), s.handleGetServiceTypes)

	s.mcp.AddTool(mcp.NewTool("create_service_type",
		mcp.WithDescription("Create a new service type in Planning Center Online."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name of the service type (e.g., \"Sunday Morning\").")),
		mcp.WithString("frequency", mcp.Description("How often this service occurs (e.g., \"every 1 week\").")),
		mcp.WithNumber("sequence", mcp.Description("The order in which this service type appears.")),
	), s.handleCreateServiceType)

	s.mcp.AddTool(mcp.NewTool("update_service_type",
		mcp.WithDescription("Update an existing service type in Planning Center Online."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type to update.")),
		mcp.WithString("name", mcp.Description("The new name for the service type.")),
		mcp.WithString("frequency", mcp.Description("The new frequency.")),
		mcp.WithNumber("sequence", mcp.Description("The new sequence number.")),
	), s.handleUpdateServiceType)

	s.mcp.AddTool(mcp.NewTool("delete_service_type",
		mcp.WithDescription("Delete a service type from Planning Center Online."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type to delete.")),
	), s.handleDeleteServiceType)

	s.mcp.AddTool(mcp.NewTool("get_plans",
		mcp.WithDescription("Fetch a list of plans for a specific service type, most recently updated first."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
	), s.handleGetPlans)

	s.mcp.AddTool(mcp.NewTool("create_plan",
		mcp.WithDescription("Create a new plan for a service type in Planning Center Online."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type to create the plan under.")),
		mcp.WithString("title", mcp.Description("The title of the plan.")),
		mcp.WithBoolean("public", mcp.Description("Whether the plan is publicly visible.")),
		mcp.WithString("series_title", mcp.Description("The series title for the plan.")),
	), s.handleCreatePlan)

	s.mcp.AddTool(mcp.NewTool("update_plan",
		mcp.WithDescription("Update an existing plan in Planning Center Online."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan to update.")),
		mcp.WithString("title", mcp.Description("The new title of the plan.")),
		mcp.WithBoolean("public", mcp.Description("Whether the plan is publicly visible.")),
		mcp.WithString("series_title", mcp.Description("The new series title.")),
	), s.handleUpdatePlan)

	s.mcp.AddTool(mcp.NewTool("delete_plan",
		mcp.WithDescription("Delete a plan from Planning Center Online."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan to delete.")),
	), s.handleDeletePlan)

	s.mcp.AddTool(mcp.NewTool("get_plan_times",
		mcp.WithDescription("Fetch the scheduled times (rehearsals, services) for a specific plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
	), s.handleGetPlanTimes)

	s.mcp.AddTool(mcp.NewTool("create_plan_time",
		mcp.WithDescription("Create a new scheduled time for a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("starts_at", mcp.Required(), mcp.Description("The start time in ISO 8601 format (e.g., \"2025-03-01T09:00:00Z\").")),
		mcp.WithString("ends_at", mcp.Required(), mcp.Description("The end time in ISO 8601 format.")),
		mcp.WithString("time_type", mcp.Description("The type of time: \"rehearsal\", \"service\", or \"other\".")),
		mcp.WithString("name", mcp.Description("A name for this time (e.g., \"Morning Rehearsal\").")),
	), s.handleCreatePlanTime)

	s.mcp.AddTool(mcp.NewTool("update_plan_time",
		mcp.WithDescription("Update an existing plan time."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("plan_time_id", mcp.Required(), mcp.Description("The ID of the plan time to update.")),
		mcp.WithString("starts_at", mcp.Description("The new start time in ISO 8601 format.")),
		mcp.WithString("ends_at", mcp.Description("The new end time in ISO 8601 format.")),
		mcp.WithString("time_type", mcp.Description("The new type of time: \"rehearsal\", \"service\", or \"other\".")),
		mcp.WithString("name", mcp.Description("The new name for this time.")),
	), s.handleUpdatePlanTime)

	s.mcp.AddTool(mcp.NewTool("delete_plan_time",
		mcp.WithDescription("Delete a scheduled time from a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("plan_time_id", mcp.Required(), mcp.Description("The ID of the plan time to delete.")),
	), s.handleDeletePlanTime)

	s.mcp.AddTool(mcp.NewTool("get_plan_items",
		mcp.WithDescription("Fetch the items (songs, headers, media) of a specific plan."),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
	), s.handleGetPlanItems)

	s.mcp.AddTool(mcp.NewTool("create_plan_item",
		mcp.WithDescription("Create a new item in a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("title", mcp.Required(), mcp.Description("The title of the item.")),
		mcp.WithString("item_type", mcp.Required(), mcp.Description("The type of item: \"song\", \"header\", \"media\", or \"item\".")),
		mcp.WithNumber("length", mcp.Description("The length of the item in seconds.")),
		mcp.WithString("service_position", mcp.Description("Position in service: \"pre\" or \"post\" (omit for during).")),
		mcp.WithString("description", mcp.Description("A description for the item.")),
		mcp.WithString("song_id", mcp.Description("The ID of a song to associate (for song items).")),
		mcp.WithString("arrangement_id", mcp.Description("The ID of a specific arrangement to use.")),
		mcp.WithString("key_id", mcp.Description("The ID of a specific key to use.")),
	), s.handleCreatePlanItem)

	s.mcp.AddTool(mcp.NewTool("update_plan_item",
		mcp.WithDescription("Update an existing item in a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The ID of the item to update.")),
		mcp.WithString("title", mcp.Description("The new title for the item.")),
		mcp.WithNumber("length", mcp.Description("The new length in seconds.")),
		mcp.WithString("service_position", mcp.Description("New position: \"pre\" or \"post\" (omit for during).")),
		mcp.WithString("description", mcp.Description("The new description.")),
		mcp.WithNumber("sequence", mcp.Description("The new sequence number for ordering.")),
	), s.handleUpdatePlanItem)

	s.mcp.AddTool(mcp.NewTool("delete_plan_item",
		mcp.WithDescription("Delete an item from a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The ID of the item to delete.")),
	), s.handleDeletePlanItem)

	s.mcp.AddTool(mcp.NewTool("reorder_plan_items",
		mcp.WithDescription("Reorder items within a plan. Items are arranged in the order given."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithArray("item_ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("An ordered list of item IDs representing the desired order.")),
	), s.handleReorderPlanItems)
}

func (s *Server) handleGetServiceTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/service_types")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleCreateServiceType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}

	attributes := map[string]any{"name": name}
	if frequency, ok := optString(request, "frequency"); ok {
		attributes["frequency"] = frequency
	}
	if sequence, ok := optInt(request, "sequence"); ok {
		attributes["sequence"] = sequence
	}

	doc, err := s.gateway.Post(ctx, sessionID, "/services/v2/service_types", pco.Body("ServiceType", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleUpdateServiceType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}

	attributes := map[string]any{}
	if name, ok := optString(request, "name"); ok {
		attributes["name"] = name
	}
	if frequency, ok := optString(request, "frequency"); ok {
		attributes["frequency"] = frequency
	}
	if sequence, ok := optInt(request, "sequence"); ok {
		attributes["sequence"] = sequence
	}

	doc, err := s.gateway.Patch(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID, pco.Body("ServiceType", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleDeleteServiceType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	if _, err := s.gateway.Delete(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Service type %s deleted successfully.", serviceTypeID)), nil
}

func (s *Server) handleGetPlans(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans?order=-updated_at")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleCreatePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}

	attributes := map[string]any{}
	if title, ok := optString(request, "title"); ok {
		attributes["title"] = title
	}
	if public, ok := optBool(request, "public"); ok {
		attributes["public"] = public
	}
	if seriesTitle, ok := optString(request, "series_title"); ok {
		attributes["series_title"] = seriesTitle
	}

	doc, err := s.gateway.Post(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans", pco.Body("Plan", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleUpdatePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}

	attributes := map[string]any{}
	if title, ok := optString(request, "title"); ok {
		attributes["title"] = title
	}
	if public, ok := optBool(request, "public"); ok {
		attributes["public"] = public
	}
	if seriesTitle, ok := optString(request, "series_title"); ok {
		attributes["series_title"] = seriesTitle
	}

	doc, err := s.gateway.Patch(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID, pco.Body("Plan", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleDeletePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	if _, err := s.gateway.Delete(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Plan %s deleted successfully.", planID)), nil
}

func (s *Server) handleGetPlanTimes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/plan_times")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleCreatePlanTime(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	startsAt, err := request.RequireString("starts_at")
	if err != nil {
		return mcp.NewToolResultError("starts_at argument is required"), nil
	}
	endsAt, err := request.RequireString("ends_at")
	if err != nil {
		return mcp.NewToolResultError("ends_at argument is required"), nil
	}

	attributes := map[string]any{"starts_at": startsAt, "ends_at": endsAt}
	if timeType, ok := optString(request, "time_type"); ok {
		attributes["time_type"] = timeType
	}
	if name, ok := optString(request, "name"); ok {
		attributes["name"] = name
	}

	doc, err := s.gateway.Post(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/plan_times", pco.Body("PlanTime", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleUpdatePlanTime(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	planTimeID, err := request.RequireString("plan_time_id")
	if err != nil {
		return mcp.NewToolResultError("plan_time_id argument is required"), nil
	}

	attributes := map[string]any{}
	if startsAt, ok := optString(request, "starts_at"); ok {
		attributes["starts_at"] = startsAt
	}
	if endsAt, ok := optString(request, "ends_at"); ok {
		attributes["ends_at"] = endsAt
	}
	if timeType, ok := optString(request, "time_type"); ok {
		attributes["time_type"] = timeType
	}
	if name, ok := optString(request, "name"); ok {
		attributes["name"] = name
	}

	doc, err := s.gateway.Patch(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/plan_times/"+planTimeID, pco.Body("PlanTime", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleDeletePlanTime(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	planTimeID, err := request.RequireString("plan_time_id")
	if err != nil {
		return mcp.NewToolResultError("plan_time_id argument is required"), nil
	}
	if _, err := s.gateway.Delete(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/plan_times/"+planTimeID); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Plan time %s deleted successfully.", planTimeID)), nil
}

func (s *Server) handleGetPlanItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/plans/"+planID+"/items")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleCreatePlanItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title argument is required"), nil
	}
	itemType, err := request.RequireString("item_type")
	if err != nil {
		return mcp.NewToolResultError("item_type argument is required"), nil
	}

	attributes := map[string]any{"title": title, "item_type": itemType}
	if length, ok := optInt(request, "length"); ok {
		attributes["length"] = length
	}
	if servicePosition, ok := optString(request, "service_position"); ok {
		attributes["service_position"] = servicePosition
	}
	if description, ok := optString(request, "description"); ok {
		attributes["description"] = description
	}
	if songID, ok := optString(request, "song_id"); ok {
		attributes["song_id"] = songID
	}
	if arrangementID, ok := optString(request, "arrangement_id"); ok {
		attributes["arrangement_id"] = arrangementID
	}
	if keyID, ok := optString(request, "key_id"); ok {
		attributes["key_id"] = keyID
	}

	doc, err := s.gateway.Post(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/items", pco.Body("Item", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleUpdatePlanItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError("item_id argument is required"), nil
	}

	attributes := map[string]any{}
	if title, ok := optString(request, "title"); ok {
		attributes["title"] = title
	}
	if length, ok := optInt(request, "length"); ok {
		attributes["length"] = length
	}
	if servicePosition, ok := optString(request, "service_position"); ok {
		attributes["service_position"] = servicePosition
	}
	if description, ok := optString(request, "description"); ok {
		attributes["description"] = description
	}
	if sequence, ok := optInt(request, "sequence"); ok {
		attributes["sequence"] = sequence
	}

	doc, err := s.gateway.Patch(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/items/"+itemID, pco.Body("Item", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleDeletePlanItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError("item_id argument is required"), nil
	}
	if _, err := s.gateway.Delete(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/items/"+itemID); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Plan item %s deleted successfully.", itemID)), nil
}

func (s *Server) handleReorderPlanItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	serviceTypeID, err := request.RequireString("service_type_id")
	if err != nil {
		return mcp.NewToolResultError("service_type_id argument is required"), nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	itemIDs, err := stringList(request, "item_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "ItemReorder",
			"attributes": map[string]any{
				"sequence": itemIDs,
			},
		},
	}
	if _, err := s.gateway.Post(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/item_reorder", body); err != nil {
		return s.errorResult(err), nil
	}
	return successResult("Plan items reordered successfully."), nil
}
