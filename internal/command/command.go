// Package command turns chat-layer invocations into clan operations and renders
// their outcome as display text.
package command

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	clandomain "github.com/smallbiznis/clanbot/internal/clan/domain"
	"github.com/smallbiznis/clanbot/internal/member"
	obscontext "github.com/smallbiznis/clanbot/internal/observability/context"
	"github.com/smallbiznis/clanbot/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	NameStatus = "clan.status"
	NameCreate = "clan.create"
	NameEdit   = "clan.edit"
	NameList   = "clan.list"
)

var (
	ErrUnknownCommand = errors.New("unknown_command")
	ErrDuplicateName  = errors.New("duplicate_command")
)

// Args are the raw arguments of a command. Members holds free text with
// mentions; MemberRefs holds references the caller already extracted.
type Args struct {
	Name       string   `json:"name"`
	Tag        string   `json:"tag"`
	Action     string   `json:"action"`
	Members    string   `json:"members"`
	MemberRefs []string `json:"member_refs"`
	PageToken  string   `json:"page_token"`
	PageSize   int      `json:"page_size"`
}

// Refs returns MemberRefs followed by mentions parsed from Members, without repeats.
func (a Args) Refs() []string {
	out := make([]string, 0, len(a.MemberRefs))
	for _, ref := range append(slices.Clone(a.MemberRefs), member.ParseMentions(a.Members)...) {
		ref = strings.TrimSpace(ref)
		if ref == "" || slices.Contains(out, ref) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

type Request struct {
	Invocation clandomain.Invocation
	Args       Args
}

// Output is what a handler produced before chunking.
type Output struct {
	Text          string
	Result        any
	NextPageToken string
}

type Handler func(ctx context.Context, req Request) (Output, error)

// Reply is the rendered outcome of a command. Outcome is "ok" or the error code.
type Reply struct {
	Command       string   `json:"command"`
	Outcome       string   `json:"outcome"`
	Messages      []string `json:"messages"`
	Result        any      `json:"result,omitempty"`
	NextPageToken string   `json:"next_page_token,omitempty"`
}

type Params struct {
	fx.In

	Log  *zap.Logger
	Clan clandomain.Service
}

type Registry struct {
	mu       sync.RWMutex
	log      *zap.Logger
	handlers map[string]Handler
}

// NewRegistry returns a registry with the clan commands registered.
func NewRegistry(p Params) *Registry {
	r := &Registry{
		log:      p.Log.Named("command"),
		handlers: make(map[string]Handler),
	}
	clan := clanCommands{svc: p.Clan}
	r.mustRegister(NameStatus, clan.status)
	r.mustRegister(NameCreate, clan.create)
	r.mustRegister(NameEdit, clan.edit)
	r.mustRegister(NameList, clan.list)
	return r
}

func (r *Registry) Register(name string, h Handler) error {
	name = strings.TrimSpace(name)
	if name == "" || h == nil {
		return ErrUnknownCommand
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return ErrDuplicateName
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) mustRegister(name string, h Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the named command. Errors from the command itself are rendered
// into the reply; only an unknown name is returned as an error.
func (r *Registry) Dispatch(ctx context.Context, name string, req Request) (Reply, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return Reply{}, ErrUnknownCommand
	}

	ctx = obscontext.WithInvocation(ctx, name, req.Invocation.ServerRef, req.Invocation.CallerRef)
	out, err := h(ctx, req)
	if err != nil {
		text, code := RenderError(name, err)
		log := ctxlogger.WithContext(ctx, r.log)
		if _, domainErr := asDomainError(err); domainErr {
			log.Info("command rejected", zap.String("code", code))
		} else {
			log.Error("command failed", zap.Error(err))
		}
		return Reply{Command: name, Outcome: code, Messages: Chunk(text, MaxMessageLength)}, nil
	}

	return Reply{
		Command:       name,
		Outcome:       "ok",
		Messages:      Chunk(out.Text, MaxMessageLength),
		Result:        out.Result,
		NextPageToken: out.NextPageToken,
	}, nil
}

var Module = fx.Module("command",
	fx.Provide(NewRegistry),
)
