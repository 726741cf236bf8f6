package userserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts() {
	s.srv.AddPrompt(&mcp.Prompt{
		Name:        "generate-dummy-user",
		Description: "Generate a dummy user based on a given name",
		Arguments: []*mcp.PromptArgument{{
			Name:        "name",
			Description: "User name",
			Required:    true,
		}},
	}, s.generateDummyUser)
}

func (s *Server) generateDummyUser(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["name"]
	if strings.TrimSpace(name) == "" {
		return nil, errors.New(`missing required argument "name"`)
	}
	return &mcp.GetPromptResult{
		Description: "Generate a dummy user based on a given name",
		Messages: []*mcp.PromptMessage{{
			Role: "user",
			Content: &mcp.TextContent{
				Text: "Generate a dummy user with the name " + name + ". The user should have a realistic email, address, and phone number.",
			},
		}},
	}, nil
}
