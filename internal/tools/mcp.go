package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type BinaryParams struct {
	A float64 `json:"a" mcp:"first operand"`
	B float64 `json:"b" mcp:"second operand"`
}

type SaveUserInfoParams struct {
	UserID   string                 `json:"user_id" mcp:"user the facts belong to"`
	UserInfo map[string]interface{} `json:"user_info" mcp:"key/value facts about the user"`
}

type GetUserInfoParams struct {
	UserID string `json:"user_id" mcp:"user to look up"`
}

// MCPServer exposes a Toolbox over the Model Context Protocol.
type MCPServer struct {
	box *Toolbox
}

// NewMCPServer registers every tool on a new MCP server.
func NewMCPServer(box *Toolbox, version string) *mcp.Server {
	s := &MCPServer{box: box}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "persona-chatter-tools",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{Name: ToolAdd, Description: "Adds two numbers"}, s.Add)
	mcp.AddTool(server, &mcp.Tool{Name: ToolMultiply, Description: "Multiplies two numbers"}, s.Multiply)
	mcp.AddTool(server, &mcp.Tool{Name: ToolSaveUserInfo, Description: "Saves facts about a user, replacing earlier ones"}, s.SaveUserInfo)
	mcp.AddTool(server, &mcp.Tool{Name: ToolGetUserInfo, Description: "Returns the facts saved about a user"}, s.GetUserInfo)
	return server
}

func (s *MCPServer) Add(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[BinaryParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	return textResult(formatNumber(Add(args.A, args.B))), nil
}

func (s *MCPServer) Multiply(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[BinaryParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	return textResult(formatNumber(Multiply(args.A, args.B))), nil
}

func (s *MCPServer) SaveUserInfo(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[SaveUserInfoParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.UserID == "" {
		return errorResult("❌ user_id is required"), nil
	}
	if err := s.box.SaveUserInfo(ctx, args.UserID, args.UserInfo); err != nil {
		s.box.logger.Error("❌ save_user_info failed", zap.String("user_id", args.UserID), zap.Error(err))
		return errorResult(fmt.Sprintf("❌ Failed to save user info: %v", err)), nil
	}
	return textResult("Successfully saved user info."), nil
}

func (s *MCPServer) GetUserInfo(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[GetUserInfoParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.UserID == "" {
		return errorResult("❌ user_id is required"), nil
	}
	info, err := s.box.GetUserInfo(ctx, args.UserID)
	if err != nil {
		return errorResult(fmt.Sprintf("❌ Failed to read user info: %v", err)), nil
	}
	return textResult(info), nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
