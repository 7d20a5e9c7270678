package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	serverdomain "github.com/smallbiznis/clanbot/internal/chatserver/domain"
	"github.com/smallbiznis/clanbot/internal/clan/domain"
	"github.com/smallbiznis/clanbot/internal/clan/guard"
	"github.com/smallbiznis/clanbot/internal/clock"
	"github.com/smallbiznis/clanbot/internal/config"
	"github.com/smallbiznis/clanbot/internal/lock"
	memberdomain "github.com/smallbiznis/clanbot/internal/member/domain"
	"github.com/smallbiznis/clanbot/internal/observability/metrics"
	"github.com/smallbiznis/clanbot/internal/observability/tracing"
	"github.com/smallbiznis/clanbot/pkg/db"
	"github.com/smallbiznis/clanbot/pkg/db/pagination"
	"github.com/smallbiznis/clanbot/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	opCreate = "clan.create"
	opEdit   = "clan.edit"
	opStatus = "clan.status"
	opList   = "clan.list"

	maxAttempts = 3
)

var errVersionConflict = errors.New("version_conflict")

type Params struct {
	fx.In

	Gateway *db.Gateway
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    domain.Repository
	Servers serverdomain.Service
	Members memberdomain.Service
	Locker  lock.Locker
	Bot     *config.BotConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	gateway *db.Gateway
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	repo    domain.Repository
	servers serverdomain.Service
	members memberdomain.Service
	locker  lock.Locker
	bot     *config.BotConfigHolder
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		gateway: p.Gateway,
		log:     p.Log.Named("clan.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		repo:    p.Repo,
		servers: p.Servers,
		members: p.Members,
		locker:  p.Locker,
		bot:     p.Bot,
		metrics: p.Metrics,
		tracer:  otel.Tracer("clanbot/clan"),
	}
}

// candidate is one member reference in request order. Unresolved candidates
// are kept so rejections can be reported in the order they were given.
type candidate struct {
	ref        string
	memberID   snowflake.ID
	unresolved bool
}

func (s *Service) CreateClan(ctx context.Context, req domain.CreateClanRequest) (res domain.CreateClanResult, err error) {
	ctx, span := s.startSpan(ctx, opCreate)
	defer func() { s.endSpan(ctx, span, opCreate, err) }()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CreateClanResult{}, domain.ErrInvalidName
	}
	tag := strings.TrimSpace(req.Tag)
	if tag == "" {
		return domain.CreateClanResult{}, domain.ErrInvalidTag
	}

	serverID, err := s.server(ctx, req.Invocation)
	if err != nil {
		return domain.CreateClanResult{}, err
	}
	caller, err := s.resolveCaller(ctx, req.Invocation)
	if err != nil {
		return domain.CreateClanResult{}, err
	}

	// Fail fast before any member record is created for the candidates.
	if err := s.checkCreatable(ctx, serverID, caller.ID, name, tag); err != nil {
		return domain.CreateClanResult{}, err
	}

	candidates, err := s.resolveCandidates(ctx, req.Invocation, caller, req.MemberRefs, true)
	if err != nil {
		return domain.CreateClanResult{}, err
	}

	keys := []string{memberKey(serverID, caller.ID), nameKey(serverID, name), tagKey(serverID, tag)}
	for _, c := range candidates {
		if !c.unresolved {
			keys = append(keys, memberKey(serverID, c.memberID))
		}
	}
	release, err := s.acquire(ctx, opCreate, keys)
	if err != nil {
		return domain.CreateClanResult{}, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		res, err = s.createLocked(ctx, serverID, caller.ID, name, tag, candidates)
		if err == nil || !retryable(err) {
			return res, err
		}
		if attempt == maxAttempts {
			return domain.CreateClanResult{}, domain.ErrConcurrentModification
		}
		ctxlogger.WithContext(ctx, s.log).Warn("clan create lost a race, revalidating",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func (s *Service) createLocked(ctx context.Context, serverID, callerID snowflake.ID, name, tag string, candidates []candidate) (domain.CreateClanResult, error) {
	if err := s.checkCreatable(ctx, serverID, callerID, name, tag); err != nil {
		return domain.CreateClanResult{}, err
	}

	accepted := []snowflake.ID{callerID}
	rejected := make([]domain.Rejection, 0)
	for _, c := range candidates {
		if c.unresolved {
			rejected = append(rejected, domain.Rejection{Ref: c.ref, Reason: domain.ReasonUnresolved})
			continue
		}
		existing, err := s.repo.FindActiveByMember(ctx, s.gateway, serverID, c.memberID)
		if err != nil {
			return domain.CreateClanResult{}, err
		}
		if existing != nil {
			rejected = append(rejected, domain.Rejection{Ref: c.ref, Reason: domain.ReasonAlreadyInClan, ClanName: existing.Name})
			continue
		}
		accepted = append(accepted, c.memberID)
	}

	if len(accepted) < domain.MinMembers {
		s.metrics.RecordRejectedMembers(ctx, opCreate, string(domain.ReasonInsufficientMembers), len(rejected))
		return domain.CreateClanResult{}, domain.ValidationError(domain.ReasonInsufficientMembers, rejected)
	}
	if len(accepted) > domain.MaxMembers {
		return domain.CreateClanResult{}, domain.ValidationError(domain.ReasonTooMany, rejected)
	}

	now := s.clock.Now()
	clan := domain.Clan{
		ID:              s.genID.Generate(),
		ServerID:        serverID,
		LeaderID:        callerID,
		Name:            name,
		Tag:             tag,
		MemberIDs:       datatypes.JSONSlice[snowflake.ID](accepted),
		ModifierHistory: datatypes.JSONSlice[snowflake.ID]{callerID},
		Active:          true,
		LastUpdatedAt:   now,
		Version:         1,
		CreatedAt:       now,
	}
	if err := guard.CheckClan(clan); err != nil {
		return domain.CreateClanResult{}, err
	}

	err := s.gateway.Tx(ctx, func(tx db.Executor) error {
		if err := s.repo.Insert(ctx, tx, &clan); err != nil {
			return err
		}
		return s.repo.InsertMemberships(ctx, tx, serverID, clan.ID, accepted)
	})
	if err != nil {
		return domain.CreateClanResult{}, err
	}

	s.metrics.RecordRejectedMembers(ctx, opCreate, "partial", len(rejected))
	ctxlogger.WithContext(ctx, s.log).Info("clan created",
		zap.String("clan_id", clan.ID.String()),
		zap.String("server_id", serverID.String()),
		zap.Int("members", len(accepted)),
		zap.Int("rejected", len(rejected)),
	)
	return domain.CreateClanResult{Clan: clan, Rejected: rejected}, nil
}

func (s *Service) checkCreatable(ctx context.Context, serverID, callerID snowflake.ID, name, tag string) error {
	existing, err := s.repo.FindActiveByMember(ctx, s.gateway, serverID, callerID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrAlreadyInClan
	}

	dup, err := s.repo.FindByNameOrTag(ctx, s.gateway, serverID, name, tag)
	if err != nil {
		return err
	}
	if dup != nil {
		if dup.Name == name {
			return domain.ErrDuplicateName
		}
		return domain.ErrDuplicateTag
	}
	return nil
}

func (s *Service) EditMembership(ctx context.Context, req domain.EditMembershipRequest) (res domain.EditMembershipResult, err error) {
	ctx, span := s.startSpan(ctx, opEdit)
	defer func() { s.endSpan(ctx, span, opEdit, err) }()

	if req.Action != domain.ActionAdd && req.Action != domain.ActionRemove {
		return domain.EditMembershipResult{}, domain.ErrInvalidAction
	}

	serverID, err := s.server(ctx, req.Invocation)
	if err != nil {
		return domain.EditMembershipResult{}, err
	}
	caller, err := s.resolveCaller(ctx, req.Invocation)
	if err != nil {
		return domain.EditMembershipResult{}, err
	}

	current, err := s.repo.FindActiveByMember(ctx, s.gateway, serverID, caller.ID)
	if err != nil {
		return domain.EditMembershipResult{}, err
	}
	if current == nil {
		return domain.EditMembershipResult{}, domain.ErrCallerNotInClan
	}

	// Only additions register new members; removals look up known ones.
	candidates, err := s.resolveCandidates(ctx, req.Invocation, memberdomain.Member{}, req.MemberRefs, req.Action == domain.ActionAdd)
	if err != nil {
		return domain.EditMembershipResult{}, err
	}

	keys := []string{clanKey(serverID, current.ID), memberKey(serverID, caller.ID)}
	for _, c := range candidates {
		if !c.unresolved {
			keys = append(keys, memberKey(serverID, c.memberID))
		}
	}
	release, err := s.acquire(ctx, opEdit, keys)
	if err != nil {
		return domain.EditMembershipResult{}, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		res, err = s.editLocked(ctx, serverID, caller.ID, current.ID, req.Action, candidates)
		if err == nil || !retryable(err) {
			return res, err
		}
		if attempt == maxAttempts {
			return domain.EditMembershipResult{}, domain.ErrConcurrentModification
		}
		ctxlogger.WithContext(ctx, s.log).Warn("clan edit lost a race, revalidating",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func (s *Service) editLocked(ctx context.Context, serverID, callerID, clanID snowflake.ID, action domain.Action, candidates []candidate) (domain.EditMembershipResult, error) {
	current, err := s.repo.FindActiveByMember(ctx, s.gateway, serverID, callerID)
	if err != nil {
		return domain.EditMembershipResult{}, err
	}
	if current == nil {
		return domain.EditMembershipResult{}, domain.ErrCallerNotInClan
	}
	if current.ID != clanID {
		// The caller changed clans after the lock keys were computed.
		return domain.EditMembershipResult{}, domain.ErrConcurrentModification
	}

	notProcessed := make([]domain.Rejection, 0)
	alreadyInClan := make([]domain.Rejection, 0)
	accepted := make([]guard.Target, 0, len(candidates))
	for _, c := range candidates {
		if c.unresolved {
			notProcessed = append(notProcessed, domain.Rejection{Ref: c.ref, Reason: domain.ReasonUnresolved})
			continue
		}
		if action == domain.ActionAdd {
			other, err := s.repo.FindActiveByMember(ctx, s.gateway, serverID, c.memberID)
			if err != nil {
				return domain.EditMembershipResult{}, err
			}
			if other != nil && other.ID != current.ID {
				alreadyInClan = append(alreadyInClan, domain.Rejection{Ref: c.ref, Reason: domain.ReasonAlreadyInClan, ClanName: other.Name})
				continue
			}
		}
		accepted = append(accepted, guard.Target{Ref: c.ref, MemberID: c.memberID})
	}

	plan := guard.PlanEdit(current.MemberIDs, current.LeaderID, action, accepted)
	notProcessed = append(notProcessed, plan.NotProcessed...)
	if err := guard.CheckSize(len(plan.MemberIDs)); err != nil {
		return domain.EditMembershipResult{}, err
	}

	next := *current
	next.MemberIDs = datatypes.JSONSlice[snowflake.ID](plan.MemberIDs)
	next.ModifierHistory = append(slices.Clone(current.ModifierHistory), callerID)
	next.LastUpdatedAt = latest(s.clock.Now(), current.LastUpdatedAt)
	next.Version = current.Version + 1
	if err := guard.CheckClan(next); err != nil {
		return domain.EditMembershipResult{}, err
	}

	err = s.gateway.Tx(ctx, func(tx db.Executor) error {
		ok, err := s.repo.UpdateMembership(ctx, tx, &next, current.Version)
		if err != nil {
			return err
		}
		if !ok {
			return errVersionConflict
		}
		if err := s.repo.DeleteMemberships(ctx, tx, next.ID, plan.Removed); err != nil {
			return err
		}
		return s.repo.InsertMemberships(ctx, tx, serverID, next.ID, plan.Added)
	})
	if err != nil {
		return domain.EditMembershipResult{}, err
	}

	s.metrics.RecordRejectedMembers(ctx, opEdit, string(domain.ReasonAlreadyInClan), len(alreadyInClan))
	s.metrics.RecordRejectedMembers(ctx, opEdit, "not_processed", len(notProcessed))
	ctxlogger.WithContext(ctx, s.log).Info("clan membership edited",
		zap.String("clan_id", next.ID.String()),
		zap.String("action", string(action)),
		zap.Int("added", len(plan.Added)),
		zap.Int("removed", len(plan.Removed)),
		zap.Int64("version", next.Version),
	)

	processed := plan.Processed
	if processed == nil {
		processed = []string{}
	}
	return domain.EditMembershipResult{
		Clan:          next,
		Action:        action,
		Processed:     processed,
		NotProcessed:  notProcessed,
		AlreadyInClan: alreadyInClan,
	}, nil
}

func (s *Service) Status(ctx context.Context, req domain.StatusRequest) (snap domain.Snapshot, err error) {
	ctx, span := s.startSpan(ctx, opStatus)
	defer func() { s.endSpan(ctx, span, opStatus, err) }()

	server, err := s.servers.GetByExternalRef(ctx, req.ServerRef)
	if errors.Is(err, serverdomain.ErrNotFound) || errors.Is(err, serverdomain.ErrInvalidExternalRef) {
		return domain.Snapshot{}, domain.ErrCallerNotInClan
	}
	if err != nil {
		return domain.Snapshot{}, err
	}

	caller, err := s.members.GetByExternalRef(ctx, req.CallerRef)
	if errors.Is(err, memberdomain.ErrNotFound) || errors.Is(err, memberdomain.ErrInvalidRef) {
		return domain.Snapshot{}, domain.ErrCallerNotInClan
	}
	if err != nil {
		return domain.Snapshot{}, err
	}

	clan, err := s.repo.FindActiveByMember(ctx, s.gateway, server.ID, caller.ID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if clan == nil {
		return domain.Snapshot{}, domain.ErrCallerNotInClan
	}

	return s.snapshot(ctx, *clan)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (resp domain.ListResponse, err error) {
	ctx, span := s.startSpan(ctx, opList)
	defer func() { s.endSpan(ctx, span, opList, err) }()

	if !req.IsAdmin && !s.bot.Get().IsAdmin(req.CallerRef) {
		return domain.ListResponse{}, domain.ErrNotAdmin
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}.Normalize()
	afterID, err := page.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}

	server, err := s.servers.GetByExternalRef(ctx, req.ServerRef)
	if errors.Is(err, serverdomain.ErrNotFound) {
		return domain.ListResponse{Clans: []domain.Snapshot{}}, nil
	}
	if errors.Is(err, serverdomain.ErrInvalidExternalRef) {
		return domain.ListResponse{}, domain.ErrInvalidServer
	}
	if err != nil {
		return domain.ListResponse{}, err
	}

	rows, err := s.repo.ListActive(ctx, s.gateway, server.ID, snowflake.ID(afterID), page.PageSize+1)
	if err != nil {
		return domain.ListResponse{}, err
	}
	rows, pageInfo, err := pagination.BuildCursorPageInfo(rows, page.PageSize, func(c domain.Clan) int64 {
		return c.ID.Int64()
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	clans := make([]domain.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := s.snapshot(ctx, row)
		if err != nil {
			return domain.ListResponse{}, err
		}
		clans = append(clans, snap)
	}

	return domain.ListResponse{PageInfo: *pageInfo, Clans: clans}, nil
}

func (s *Service) snapshot(ctx context.Context, clan domain.Clan) (domain.Snapshot, error) {
	ids := slices.Clone([]snowflake.ID(clan.MemberIDs))
	if !slices.Contains(ids, clan.LeaderID) {
		ids = append(ids, clan.LeaderID)
	}
	lastModifier, hasModifier := clan.LastModifier()
	if hasModifier && !slices.Contains(ids, lastModifier) {
		ids = append(ids, lastModifier)
	}

	records, err := s.members.GetByIDs(ctx, ids)
	if err != nil {
		return domain.Snapshot{}, err
	}
	byID := make(map[snowflake.ID]memberdomain.Member, len(records))
	for _, m := range records {
		byID[m.ID] = m
	}

	snap := domain.Snapshot{Clan: clan, Members: make([]memberdomain.Member, 0, len(clan.MemberIDs))}
	for _, id := range clan.MemberIDs {
		if m, ok := byID[id]; ok {
			snap.Members = append(snap.Members, m)
		}
	}
	if m, ok := byID[clan.LeaderID]; ok {
		snap.Leader = &m
	}
	if hasModifier {
		if m, ok := byID[lastModifier]; ok {
			snap.LastModifier = &m
		}
	}
	return snap, nil
}

func (s *Service) server(ctx context.Context, inv domain.Invocation) (snowflake.ID, error) {
	server, err := s.servers.GetOrCreate(ctx, inv.ServerRef, inv.ServerName)
	if errors.Is(err, serverdomain.ErrInvalidExternalRef) {
		return 0, domain.ErrInvalidServer
	}
	if err != nil {
		return 0, err
	}
	return server.ID, nil
}

func (s *Service) resolveCaller(ctx context.Context, inv domain.Invocation) (memberdomain.Member, error) {
	caller, err := s.members.Resolve(ctx, inv.ServerRef, inv.CallerRef, inv.CallerName)
	if isUnresolved(err) {
		return memberdomain.Member{}, domain.ResolutionError(strings.TrimSpace(inv.CallerRef))
	}
	return caller, err
}

// resolveCandidates resolves refs in order, dropping blanks, repeats, and the
// caller. Unresolvable refs stay in the list flagged rather than failing the call.
// Without register, unknown refs are flagged instead of creating member records.
func (s *Service) resolveCandidates(ctx context.Context, inv domain.Invocation, caller memberdomain.Member, refs []string, register bool) ([]candidate, error) {
	seen := make(map[string]struct{}, len(refs))
	out := make([]candidate, 0, len(refs))
	for _, raw := range refs {
		ref := strings.TrimSpace(raw)
		if ref == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		if caller.ExternalRef != "" && ref == caller.ExternalRef {
			continue
		}

		var m memberdomain.Member
		var err error
		if register {
			m, err = s.members.Resolve(ctx, inv.ServerRef, ref, "")
		} else {
			m, err = s.members.GetByExternalRef(ctx, ref)
		}
		if isUnresolved(err) {
			out = append(out, candidate{ref: ref, unresolved: true})
			continue
		}
		if err != nil {
			return nil, err
		}
		if caller.ID != 0 && m.ID == caller.ID {
			continue
		}
		out = append(out, candidate{ref: ref, memberID: m.ID})
	}
	return out, nil
}

func (s *Service) acquire(ctx context.Context, op string, keys []string) (lock.Release, error) {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, keys...)
	s.metrics.RecordLockWait(ctx, op, time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			ctxlogger.WithContext(ctx, s.log).Warn("lock wait timed out", zap.String("operation", op), zap.Error(err))
			return nil, domain.ErrConcurrentModification
		}
		return nil, err
	}
	return release, nil
}

func (s *Service) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("operation", op)))
}

func (s *Service) endSpan(ctx context.Context, span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		safe := tracing.SafeError(err)
		outcome = safe.Error()
		span.RecordError(safe)
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.RecordClanOperation(ctx, op, outcome)
	span.End()
}

func isUnresolved(err error) bool {
	return errors.Is(err, memberdomain.ErrUnresolvable) ||
		errors.Is(err, memberdomain.ErrInvalidRef) ||
		errors.Is(err, memberdomain.ErrNotFound)
}

// retryable reports whether validation should run again: the stored version moved
// or a unique index rejected a write another process committed first.
func retryable(err error) bool {
	if errors.Is(err, errVersionConflict) {
		return true
	}
	var storageErr *db.StorageError
	return errors.As(err, &storageErr) && storageErr.Duplicate()
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
