// Package tools implements the side actions a persona may call during a
// turn. Every call carries the user it acts for.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"persona-chatter/internal/llm"
	"persona-chatter/internal/storage"
)

// UsersNamespace holds one JSON profile per user.
const UsersNamespace = "users"

const (
	ToolAdd          = "add"
	ToolMultiply     = "multiply"
	ToolSaveUserInfo = "save_user_info"
	ToolGetUserInfo  = "get_user_info"
)

// UnknownUser is returned by get_user_info when nothing was saved.
const UnknownUser = "Unknown user"

var ErrUnknownTool = errors.New("unknown tool")

type Toolbox struct {
	kv     storage.KV
	logger *zap.Logger
}

func NewToolbox(kv storage.KV, logger *zap.Logger) *Toolbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolbox{kv: kv, logger: logger}
}

// Definitions describes the tools for function-calling models.
func (t *Toolbox) Definitions() []llm.Tool {
	number := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "number", "description": desc}
	}
	binary := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"a": number("first operand"),
			"b": number("second operand"),
		},
		"required": []string{"a", "b"},
	}
	return []llm.Tool{
		llm.FunctionTool(ToolAdd, "Adds two numbers.", binary),
		llm.FunctionTool(ToolMultiply, "Multiplies two numbers.", binary),
		llm.FunctionTool(ToolSaveUserInfo, "Saves facts about the current user, replacing what was saved before.", map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_info": map[string]interface{}{
					"type":        "object",
					"description": "key/value facts about the user, for example name and preferences",
				},
			},
			"required": []string{"user_info"},
		}),
		llm.FunctionTool(ToolGetUserInfo, "Returns the facts saved about the current user.", map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}),
	}
}

// Call runs one tool call for userID and returns its textual result.
func (t *Toolbox) Call(ctx context.Context, userID string, call llm.ToolCall) (string, error) {
	args := call.Function.Arguments
	t.logger.Debug("🔧 Tool call", zap.String("user_id", userID), zap.String("tool", call.Function.Name))

	switch call.Function.Name {
	case ToolAdd, ToolMultiply:
		a, err := llm.ArgNumber(args, "a")
		if err != nil {
			return "", err
		}
		b, err := llm.ArgNumber(args, "b")
		if err != nil {
			return "", err
		}
		if call.Function.Name == ToolAdd {
			return formatNumber(Add(a, b)), nil
		}
		return formatNumber(Multiply(a, b)), nil
	case ToolSaveUserInfo:
		info, err := userInfoArg(args)
		if err != nil {
			return "", err
		}
		if err := t.SaveUserInfo(ctx, userID, info); err != nil {
			return "", err
		}
		return "Successfully saved user info.", nil
	case ToolGetUserInfo:
		return t.GetUserInfo(ctx, userID)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Function.Name)
	}
}

// userInfoArg accepts user_info as an object or as a JSON-encoded object,
// which some models send instead.
func userInfoArg(args map[string]interface{}) (map[string]interface{}, error) {
	if info, ok := args["user_info"].(map[string]interface{}); ok {
		return info, nil
	}
	raw, err := llm.ArgString(args, "user_info")
	if err != nil {
		return nil, err
	}
	var info map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &info); err != nil || info == nil {
		return nil, fmt.Errorf("argument %q must be an object", "user_info")
	}
	return info, nil
}

func Add(a, b float64) float64      { return a + b }
func Multiply(a, b float64) float64 { return a * b }

func (t *Toolbox) SaveUserInfo(ctx context.Context, userID string, info map[string]interface{}) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode user info: %w", err)
	}
	if err := t.kv.Put(ctx, UsersNamespace, userID, data); err != nil {
		return fmt.Errorf("failed to save user info: %w", err)
	}
	return nil
}

// GetUserInfo returns the stored profile as JSON, or UnknownUser.
func (t *Toolbox) GetUserInfo(ctx context.Context, userID string) (string, error) {
	raw, err := t.kv.Get(ctx, UsersNamespace, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return UnknownUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user info: %w", err)
	}
	return string(raw), nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
