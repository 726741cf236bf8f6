package userserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ggoodman/mcp-userdir/users"
)

const randomUserPrompt = "Generate a random user profile with realistic name, email, address, and phone number. Only output the user data in JSON format."

// Failure texts returned to the client. They are tool results, not protocol
// errors.
const (
	msgSaveFailed        = "Failed to save a user"
	msgSamplingFailed    = "Failed to generate the user data"
	msgGeneratedRejected = "Failed to generate user data"
)

type echoInput struct {
	Message string `json:"message" jsonschema:"Message to echo back"`
}

type createUserInput struct {
	Name    string `json:"name" jsonschema:"User's name"`
	Email   string `json:"email" jsonschema:"User's email"`
	Address string `json:"address" jsonschema:"User's address"`
	Phone   string `json:"phone" jsonschema:"User's phone number"`
}

func (in createUserInput) candidate() users.Candidate {
	return users.Candidate{Name: in.Name, Email: in.Email, Address: in.Address, Phone: in.Phone}
}

type noInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "example",
		Description: "An example tool that echoes back the input",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Example tool to echo back the message",
			ReadOnlyHint:    true,
			DestructiveHint: ptr(false),
			IdempotentHint:  false,
			OpenWorldHint:   ptr(false),
		},
	}, s.echo)

	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "create-user",
		Description: "Create a new user in the database",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Create user",
			DestructiveHint: ptr(false),
			OpenWorldHint:   ptr(s.variant == VariantFull),
		},
	}, s.createUser)

	if s.variant != VariantFull {
		return
	}
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "create-random-user",
		Description: "Create a random user with fake data",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Create random user",
			DestructiveHint: ptr(false),
			OpenWorldHint:   ptr(true),
		},
	}, s.createRandomUser)
}

func (s *Server) echo(_ context.Context, _ *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, any, error) {
	return textResult("Echo: " + in.Message), nil, nil
}

func (s *Server) createUser(ctx context.Context, _ *mcp.CallToolRequest, in createUserInput) (*mcp.CallToolResult, any, error) {
	id, err := s.repo.Append(ctx, in.candidate())
	if err != nil {
		s.logger.ErrorContext(ctx, "create user failed", slog.String("err", err.Error()))
		if s.variant == VariantFull {
			return errorResult(fmt.Sprintf("%s: %v", msgSaveFailed, err)), nil, nil
		}
		return errorResult(msgSaveFailed), nil, nil
	}
	s.NotifyUsersChanged(ctx, id)
	return textResult(fmt.Sprintf("User %d created successfully", id)), nil, nil
}

func (s *Server) createRandomUser(ctx context.Context, req *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	text, err := s.sampleUser(ctx, req.Session)
	if err != nil {
		s.logger.WarnContext(ctx, "sampling failed", slog.String("err", err.Error()))
		if errors.Is(err, errNotText) {
			return errorResult(msgSamplingFailed), nil, nil
		}
		return errorResult(fmt.Sprintf("%s: %v", msgSamplingFailed, err)), nil, nil
	}

	c, err := users.ParseGenerated(text)
	if err != nil {
		s.logger.WarnContext(ctx, "generated user rejected", slog.String("err", err.Error()))
		return errorResult(msgGeneratedRejected), nil, nil
	}
	id, err := s.repo.Append(ctx, c)
	if err != nil {
		s.logger.ErrorContext(ctx, "create random user failed", slog.String("err", err.Error()))
		return errorResult(msgGeneratedRejected), nil, nil
	}
	s.NotifyUsersChanged(ctx, id)
	return textResult(fmt.Sprintf("User %d created successfully", id)), nil, nil
}

var errNotText = errors.New("sampled content is not text")

// sampleUser asks the client to generate a user profile and returns the
// sampled text.
func (s *Server) sampleUser(ctx context.Context, ss *mcp.ServerSession) (string, error) {
	if ss == nil {
		return "", errors.New("no client session")
	}
	params := &mcp.CreateMessageParams{
		Messages: []*mcp.SamplingMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: randomUserPrompt},
		}},
		MaxTokens: 1024,
	}
	if schema, err := users.CandidateSchema(); err == nil {
		params.SystemPrompt = "Respond with a single JSON object matching this JSON Schema: " + schema
	}

	s.logger.DebugContext(ctx, "requesting sampling")
	res, err := ss.CreateMessage(ctx, params)
	if err != nil {
		return "", err
	}
	tc, ok := res.Content.(*mcp.TextContent)
	if !ok {
		return "", errNotText
	}
	return tc.Text, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}

func ptr[T any](v T) *T { return &v }
