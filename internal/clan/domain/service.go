package domain

import (
	"context"

	memberdomain "github.com/smallbiznis/clanbot/internal/member/domain"
	"github.com/smallbiznis/clanbot/pkg/db/pagination"
)

// Invocation identifies who runs a command and where.
type Invocation struct {
	ServerRef  string
	ServerName string
	CallerRef  string
	CallerName string
	IsAdmin    bool
}

type CreateClanRequest struct {
	Invocation
	Name       string
	Tag        string
	MemberRefs []string
}

type CreateClanResult struct {
	Clan     Clan        `json:"clan"`
	Rejected []Rejection `json:"rejected"`
}

type EditMembershipRequest struct {
	Invocation
	Action     Action
	MemberRefs []string
}

type EditMembershipResult struct {
	Clan          Clan        `json:"clan"`
	Action        Action      `json:"action"`
	Processed     []string    `json:"processed"`
	NotProcessed  []Rejection `json:"not_processed"`
	AlreadyInClan []Rejection `json:"already_in_clan"`
}

type StatusRequest struct {
	Invocation
}

// Snapshot is a clan with its member records resolved for display.
type Snapshot struct {
	Clan         Clan                  `json:"clan"`
	Leader       *memberdomain.Member  `json:"leader,omitempty"`
	Members      []memberdomain.Member `json:"members"`
	LastModifier *memberdomain.Member  `json:"last_modifier,omitempty"`
}

type ListRequest struct {
	Invocation
	PageToken string
	PageSize  int
}

type ListResponse struct {
	pagination.PageInfo
	Clans []Snapshot `json:"clans"`
}

type Service interface {
	CreateClan(ctx context.Context, req CreateClanRequest) (CreateClanResult, error)
	EditMembership(ctx context.Context, req EditMembershipRequest) (EditMembershipResult, error)
	Status(ctx context.Context, req StatusRequest) (Snapshot, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}
