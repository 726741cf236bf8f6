package userserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/ggoodman/mcp-userdir/users"
)

const (
	AllUsersURI     = "users://all"
	ProfileTemplate = "users://{userId}/profile"
	SchemaURI       = "users://schema"
)

const (
	mimeJSON       = "application/json"
	mimeText       = "text/plain"
	mimeJSONSchema = "application/schema+json"
)

const (
	msgListFailed    = "Failed to retrieve users data list"
	msgUserMissing   = "User doesn't exist"
	msgDetailsFailed = "Failed to retrieve user details"
)

var profileTemplate = uritemplate.MustNew(ProfileTemplate)

// ProfileURI returns the profile resource URI for id.
func ProfileURI(id int) string {
	return "users://" + strconv.Itoa(id) + "/profile"
}

// profileID extracts a numeric user id from a profile URI.
func profileID(uri string) (int, bool) {
	vals := profileTemplate.Match(uri)
	if vals == nil {
		return 0, false
	}
	v := vals.Get("userId")
	if v.T != uritemplate.ValueTypeString || len(v.V) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(v.V[0])
	if err != nil {
		return 0, false
	}
	return id, true
}

func knownURI(uri string) bool {
	if uri == AllUsersURI || uri == SchemaURI {
		return true
	}
	return profileTemplate.Match(uri) != nil
}

func (s *Server) registerResources() {
	s.srv.AddResource(&mcp.Resource{
		URI:         AllUsersURI,
		Name:        "users",
		Title:       "Users",
		Description: "Get all users data from the database",
		MIMEType:    mimeJSON,
	}, s.readAllUsers)

	s.srv.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: ProfileTemplate,
		Name:        "user-details",
		Title:       "User detail",
		Description: "Get a user details from the database",
		MIMEType:    mimeJSON,
	}, s.readProfile)

	s.srv.AddResource(&mcp.Resource{
		URI:         SchemaURI,
		Name:        "user-schema",
		Title:       "User schema",
		Description: "JSON Schema of a user record",
		MIMEType:    mimeJSONSchema,
	}, s.readSchema)
}

func (s *Server) readAllUsers(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	all, err := s.repo.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list users failed", slog.String("err", err.Error()))
		return contents(uri, mimeText, msgListFailed), nil
	}
	if all == nil {
		all = []users.User{}
	}
	b, err := json.Marshal(all)
	if err != nil {
		return contents(uri, mimeText, msgListFailed), nil
	}
	return contents(uri, mimeJSON, string(b)), nil
}

func (s *Server) readProfile(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := profileID(uri)
	if !ok {
		return contents(uri, mimeText, msgUserMissing), nil
	}
	u, err := users.Get(ctx, s.repo, id)
	switch {
	case errors.Is(err, users.ErrNotFound):
		return contents(uri, mimeText, msgUserMissing), nil
	case err != nil:
		s.logger.ErrorContext(ctx, "read user failed",
			slog.Int("id", id),
			slog.String("err", err.Error()),
		)
		return contents(uri, mimeText, msgDetailsFailed), nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return contents(uri, mimeText, msgDetailsFailed), nil
	}
	return contents(uri, mimeJSON, string(b)), nil
}

func (s *Server) readSchema(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	b, err := users.Schema()
	if err != nil {
		return nil, err
	}
	return contents(req.Params.URI, mimeJSONSchema, string(b)), nil
}

func contents(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}
