package command

import (
	"context"

	clandomain "github.com/smallbiznis/clanbot/internal/clan/domain"
)

type clanCommands struct {
	svc clandomain.Service
}

func (c clanCommands) status(ctx context.Context, req Request) (Output, error) {
	snap, err := c.svc.Status(ctx, clandomain.StatusRequest{Invocation: req.Invocation})
	if err != nil {
		return Output{}, err
	}
	return Output{Text: RenderSnapshot(snap), Result: snap}, nil
}

func (c clanCommands) create(ctx context.Context, req Request) (Output, error) {
	res, err := c.svc.CreateClan(ctx, clandomain.CreateClanRequest{
		Invocation: req.Invocation,
		Name:       req.Args.Name,
		Tag:        req.Args.Tag,
		MemberRefs: req.Args.Refs(),
	})
	if err != nil {
		return Output{}, err
	}
	return Output{Text: RenderCreated(res), Result: res}, nil
}

func (c clanCommands) edit(ctx context.Context, req Request) (Output, error) {
	action, err := clandomain.ParseAction(req.Args.Action)
	if err != nil {
		return Output{}, err
	}
	res, err := c.svc.EditMembership(ctx, clandomain.EditMembershipRequest{
		Invocation: req.Invocation,
		Action:     action,
		MemberRefs: req.Args.Refs(),
	})
	if err != nil {
		return Output{}, err
	}
	return Output{Text: RenderEdited(res), Result: res}, nil
}

func (c clanCommands) list(ctx context.Context, req Request) (Output, error) {
	resp, err := c.svc.List(ctx, clandomain.ListRequest{
		Invocation: req.Invocation,
		PageToken:  req.Args.PageToken,
		PageSize:   req.Args.PageSize,
	})
	if err != nil {
		return Output{}, err
	}
	return Output{Text: RenderList(resp), Result: resp, NextPageToken: resp.NextPageToken}, nil
}
