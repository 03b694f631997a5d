package toolsrv

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
)

func (s *Server) registerTeamTools() {
	s.mcp.AddTool(mcp.NewTool("get_plan_team_members",
		mcp.WithDescription("Fetch the team members assigned to a specific plan."),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
	), s.handleGetPlanTeamMembers)

	s.mcp.AddTool(mcp.NewTool("assign_team_member",
		mcp.WithDescription("Assign a person as a team member to a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("person_id", mcp.Required(), mcp.Description("The ID of the person to assign.")),
		mcp.WithString("team_position_name", mcp.Description("The team position name (e.g., \"Vocals\", \"Sound\").")),
		mcp.WithString("status", mcp.Description("The status: \"C\" (confirmed), \"U\" (unconfirmed), or \"D\" (declined).")),
		mcp.WithBoolean("prepare_notification", mcp.Description("Whether to send a notification to the person.")),
	), s.handleAssignTeamMember)

	s.mcp.AddTool(mcp.NewTool("update_team_member",
		mcp.WithDescription("Update an existing team member assignment on a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("team_member_id", mcp.Required(), mcp.Description("The ID of the team member assignment to update.")),
		mcp.WithString("status", mcp.Description("The new status: \"C\" (confirmed), \"U\" (unconfirmed), or \"D\" (declined).")),
		mcp.WithString("notes", mcp.Description("Notes for the team member.")),
		mcp.WithString("team_position_name", mcp.Description("The new team position name.")),
	), s.handleUpdateTeamMember)

	s.mcp.AddTool(mcp.NewTool("remove_team_member",
		mcp.WithDescription("Remove a team member assignment from a plan."),
		mcp.WithString("service_type_id", mcp.Required(), mcp.Description("The ID of the service type.")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("The ID of the plan.")),
		mcp.WithString("team_member_id", mcp.Required(), mcp.Description("The ID of the team member assignment to remove.")),
	), s.handleRemoveTeamMember)

	s.mcp.AddTool(mcp.NewTool("get_person_schedules",
		mcp.WithDescription("Fetch a person's upcoming service assignments."),
		mcp.WithString("person_id", mcp.Required(), mcp.Description("The ID of the person.")),
	), s.handleGetPersonSchedules)

	s.mcp.AddTool(mcp.NewTool("accept_schedule",
		mcp.WithDescription("Accept a schedule assignment for a person."),
		mcp.WithString("person_id", mcp.Required(), mcp.Description("The ID of the person.")),
		mcp.WithString("schedule_id", mcp.Required(), mcp.Description("The ID of the schedule to accept.")),
	), s.handleAcceptSchedule)

	s.mcp.AddTool(mcp.NewTool("decline_schedule",
		mcp.WithDescription("Decline a schedule assignment for a person."),
		mcp.WithString("person_id", mcp.Required(), mcp.Description("The ID of the person.")),
		mcp.WithString("schedule_id", mcp.Required(), mcp.Description("The ID of the schedule to decline.")),
		mcp.WithString("reason", mcp.Description("The reason for declining the schedule.")),
	), s.handleDeclineSchedule)
}

func (s *Server) handleGetPlanTeamMembers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	planID, err := request.RequireString("plan_id")
	if err != nil {
		return mcp.NewToolResultError("plan_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/plans/"+planID+"/team_members")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleAssignTeamMember(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	personID, err := request.RequireString("person_id")
	if err != nil {
		return mcp.NewToolResultError("person_id argument is required"), nil
	}

	attributes := map[string]any{}
	if teamPositionName, ok := optString(request, "team_position_name"); ok {
		attributes["team_position_name"] = teamPositionName
	}
	if status, ok := optString(request, "status"); ok {
		attributes["status"] = status
	}
	if prepareNotification, ok := optBool(request, "prepare_notification"); ok {
		attributes["prepare_notification"] = prepareNotification
	}

	body := map[string]any{
		"data": map[string]any{
			"type":       "PlanPerson",
			"attributes": attributes,
			"relationships": map[string]any{
				"person": map[string]any{
					"data": map[string]any{"type": "Person", "id": personID},
				},
			},
		},
	}

	doc, err := s.gateway.Post(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/team_members", body)
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleUpdateTeamMember(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	teamMemberID, err := request.RequireString("team_member_id")
	if err != nil {
		return mcp.NewToolResultError("team_member_id argument is required"), nil
	}

	attributes := map[string]any{}
	if status, ok := optString(request, "status"); ok {
		attributes["status"] = status
	}
	if notes, ok := optString(request, "notes"); ok {
		attributes["notes"] = notes
	}
	if teamPositionName, ok := optString(request, "team_position_name"); ok {
		attributes["team_position_name"] = teamPositionName
	}

	doc, err := s.gateway.Patch(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/team_members/"+teamMemberID, pco.Body("PlanPerson", attributes))
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleRemoveTeamMember(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	teamMemberID, err := request.RequireString("team_member_id")
	if err != nil {
		return mcp.NewToolResultError("team_member_id argument is required"), nil
	}
	if _, err := s.gateway.Delete(ctx, sessionID, "/services/v2/service_types/"+serviceTypeID+"/plans/"+planID+"/team_members/"+teamMemberID); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Team member %s removed successfully.", teamMemberID)), nil
}

func (s *Server) handleGetPersonSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	personID, err := request.RequireString("person_id")
	if err != nil {
		return mcp.NewToolResultError("person_id argument is required"), nil
	}
	doc, err := s.gateway.Get(ctx, sessionID, "/services/v2/people/"+personID+"/schedules")
	if err != nil {
		return s.errorResult(err), nil
	}
	return dataResult(doc), nil
}

func (s *Server) handleAcceptSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	personID, err := request.RequireString("person_id")
	if err != nil {
		return mcp.NewToolResultError("person_id argument is required"), nil
	}
	scheduleID, err := request.RequireString("schedule_id")
	if err != nil {
		return mcp.NewToolResultError("schedule_id argument is required"), nil
	}
	if _, err := s.gateway.Post(ctx, sessionID, "/services/v2/people/"+personID+"/schedules/"+scheduleID+"/accept", map[string]any{}); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Schedule %s accepted successfully.", scheduleID)), nil
}

func (s *Server) handleDeclineSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, denied := s.requireSession(ctx)
	if denied != nil {
		return denied, nil
	}
	personID, err := request.RequireString("person_id")
	if err != nil {
		return mcp.NewToolResultError("person_id argument is required"), nil
	}
	scheduleID, err := request.RequireString("schedule_id")
	if err != nil {
		return mcp.NewToolResultError("schedule_id argument is required"), nil
	}

	body := map[string]any{}
	if reason, ok := optString(request, "reason"); ok {
		body = map[string]any{
			"data": map[string]any{
				"attributes": map[string]any{"reason": reason},
			},
		}
	}
	if _, err := s.gateway.Post(ctx, sessionID, "/services/v2/people/"+personID+"/schedules/"+scheduleID+"/decline", body); err != nil {
		return s.errorResult(err), nil
	}
	return successResult(fmt.Sprintf("Schedule %s declined successfully.", scheduleID)), nil
}
