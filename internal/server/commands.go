package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clandomain "github.com/smallbiznis/clanbot/internal/clan/domain"
	"github.com/smallbiznis/clanbot/internal/command"
	"github.com/smallbiznis/clanbot/internal/member/directory"
)

type invokerPayload struct {
	Ref     string `json:"ref"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type serverPayload struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
}

// invokeCommandRequest is posted by the chat layer. Members maps the member
// references the chat layer could see to their display names.
type invokeCommandRequest struct {
	Caller  invokerPayload    `json:"caller"`
	Server  serverPayload     `json:"server"`
	Args    command.Args      `json:"args"`
	Members map[string]string `json:"members"`
}

func (s *Server) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.commands.Names()})
}

func (s *Server) InvokeCommand(c *gin.Context) {
	var req invokeCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	callerRef := strings.TrimSpace(req.Caller.Ref)
	if callerRef == "" {
		AbortWithError(c, newValidationError("caller.ref", "required", "caller.ref is required"))
		return
	}
	serverRef := strings.TrimSpace(req.Server.Ref)
	if serverRef == "" {
		AbortWithError(c, newValidationError("server.ref", "required", "server.ref is required"))
		return
	}

	ctx := c.Request.Context()
	if req.Members != nil {
		hints := make(map[string]string, len(req.Members)+1)
		for ref, name := range req.Members {
			hints[strings.TrimSpace(ref)] = name
		}
		if _, ok := hints[callerRef]; !ok {
			hints[callerRef] = req.Caller.Name
		}
		ctx = directory.WithHints(ctx, hints)
	}

	reply, err := s.commands.Dispatch(ctx, c.Param("name"), command.Request{
		Invocation: clandomain.Invocation{
			ServerRef:  serverRef,
			ServerName: strings.TrimSpace(req.Server.Name),
			CallerRef:  callerRef,
			CallerName: strings.TrimSpace(req.Caller.Name),
			IsAdmin:    req.Caller.IsAdmin,
		},
		Args: req.Args,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reply})
}
