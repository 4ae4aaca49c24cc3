// Package mcpserver exposes the profile and link operations as MCP
// (Model Context Protocol) tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/biolink/internal/apperr"
	"github.com/starford/biolink/internal/linkservice"
	"github.com/starford/biolink/internal/models"
	"github.com/starford/biolink/internal/profileservice"
)

// PageURI is the resource holding the profile and its links.
const PageURI = "biolink://page"

// Server wraps the MCP server with the bio tools.
type Server struct {
	mcp      *server.MCPServer
	profiles *profileservice.Service
	links    *linkservice.Service
}

// New creates a new MCP server with all tools registered.
func New(profiles *profileservice.Service, links *linkservice.Service) *Server {
	s := &Server{profiles: profiles, links: links}

	s.mcp = server.NewMCPServer(
		"biolink",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_profile",
		mcp.WithDescription("Read the bio profile (name, description, profile image)."),
	), s.getProfile)

	s.mcp.AddTool(mcp.NewTool("update_profile",
		mcp.WithDescription("Replace the profile name, description and image. All three are required."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Short bio text")),
		mcp.WithString("profile_image", mcp.Required(), mcp.Description("Image URL")),
	), s.updateProfile)

	s.mcp.AddTool(mcp.NewTool("list_links",
		mcp.WithDescription("List the social links sorted by their order value."),
	), s.listLinks)

	s.mcp.AddTool(mcp.NewTool("create_link",
		mcp.WithDescription("Add a social link to the profile."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Link label, e.g. GitHub")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Target URL")),
		mcp.WithString("icon_type", mcp.Required(), mcp.Description("Icon key, e.g. github")),
		mcp.WithNumber("order", mcp.Required(), mcp.Description("Position; lower sorts first")),
	), s.createLink)

	s.mcp.AddTool(mcp.NewTool("update_link",
		mcp.WithDescription("Change some fields of a link. Omitted fields keep their value."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Link id (24 hex characters)")),
		mcp.WithString("title", mcp.Description("New label")),
		mcp.WithString("url", mcp.Description("New target URL")),
		mcp.WithString("icon_type", mcp.Description("New icon key")),
		mcp.WithNumber("order", mcp.Description("New position")),
	), s.updateLink)

	s.mcp.AddTool(mcp.NewTool("delete_link",
		mcp.WithDescription("Delete a link."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Link id (24 hex characters)")),
	), s.deleteLink)

	s.mcp.AddResource(
		mcp.NewResource(PageURI, "Bio page",
			mcp.WithResourceDescription("The profile together with its ordered links, as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readPage,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns domain failures into tool errors; anything else is a
// protocol-level error.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidArgument):
		return mcp.NewToolResultError(err.Error()), nil
	default:
		return nil, err
	}
}

func intArg(v any) (int, error) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("order must be an integer")
	}
	return int(f), nil
}

func (s *Server) getProfile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.profiles.GetProfile(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(p)
}

func (s *Server) updateProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in models.ProfileInput
	var err error
	if in.Name, err = req.RequireString("name"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Description, err = req.RequireString("description"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.ProfileImage, err = req.RequireString("profile_image"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validation.Validate(in.Name, validation.Required); err != nil {
		return mcp.NewToolResultError("name: " + err.Error()), nil
	}

	p, err := s.profiles.ReplaceProfile(ctx, in)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(p)
}

func (s *Server) listLinks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, err := s.links.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(links)
}

func (s *Server) createLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in models.LinkInput
	var err error
	if in.Title, err = req.RequireString("title"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.URL, err = req.RequireString("url"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.IconType, err = req.RequireString("icon_type"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Order, err = intArg(req.GetArguments()["order"]); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validation.Validate(in.Title, validation.Required); err != nil {
		return mcp.NewToolResultError("title: " + err.Error()), nil
	}

	link, err := s.links.CreateLink(ctx, in)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(link)
}

func (s *Server) updateLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var patch models.LinkPatch
	args := req.GetArguments()
	for key, dst := range map[string]**string{"title": &patch.Title, "url": &patch.URL, "icon_type": &patch.IconType} {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return mcp.NewToolResultError(key + " must be a string"), nil
		}
		*dst = &str
	}
	if v, ok := args["order"]; ok && v != nil {
		order, err := intArg(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch.Order = &order
	}
	if err := validation.Validate(patch.Title, validation.NilOrNotEmpty); err != nil {
		return mcp.NewToolResultError("title: " + err.Error()), nil
	}

	link, err := s.links.UpdateLink(ctx, id, patch)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(link)
}

func (s *Server) deleteLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.links.DeleteLink(ctx, id); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

type page struct {
	Profile *models.Profile `json:"profile"`
	Links   []models.Link   `json:"links"`
}

func (s *Server) readPage(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	p, err := s.profiles.GetProfile(ctx)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	links, err := s.links.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(page{Profile: p, Links: links})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PageURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
