package command

import (
	"errors"
	"fmt"
	"strings"

	clandomain "github.com/smallbiznis/clanbot/internal/clan/domain"
	memberdomain "github.com/smallbiznis/clanbot/internal/member/domain"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	unknownMember   = "Desconhecido"
	listSeparator   = "========================================"
)

func mention(ref string) string {
	return "<@" + ref + ">"
}

func memberMention(m *memberdomain.Member) string {
	if m == nil || m.ExternalRef == "" {
		return unknownMember
	}
	return mention(m.ExternalRef)
}

func mentions(refs []string) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, mention(ref))
	}
	return strings.Join(parts, ", ")
}

func bullets(b *strings.Builder, rejected []clandomain.Rejection) {
	for i, r := range rejected {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + mention(r.Ref))
	}
}

func splitRejected(rejected []clandomain.Rejection) (inClan, unresolved []clandomain.Rejection) {
	for _, r := range rejected {
		if r.Reason == clandomain.ReasonAlreadyInClan {
			inClan = append(inClan, r)
		} else {
			unresolved = append(unresolved, r)
		}
	}
	return inClan, unresolved
}

// RenderSnapshot formats a clan the way status and list display it.
func RenderSnapshot(snap clandomain.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Nome do Clã:** %s\n", snap.Clan.Name)
	fmt.Fprintf(&b, "**TAG:** %s\n", snap.Clan.Tag)
	fmt.Fprintf(&b, "**Líder:** %s\n", memberMention(snap.Leader))
	fmt.Fprintf(&b, "**Última Atualização:** %s\n", snap.Clan.LastUpdatedAt.UTC().Format(timestampLayout))
	fmt.Fprintf(&b, "**Última Modificação por:** %s\n", memberMention(snap.LastModifier))
	b.WriteString("**Membros:**\n")
	for i := range snap.Members {
		fmt.Fprintf(&b, "- %s\n", memberMention(&snap.Members[i]))
	}
	return b.String()
}

func RenderCreated(res clandomain.CreateClanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clã '%s' criado com sucesso com %d membros!", res.Clan.Name, len(res.Clan.MemberIDs))
	inClan, unresolved := splitRejected(res.Rejected)
	if len(inClan) > 0 {
		b.WriteString("\nOs seguintes membros não foram adicionados pois já estão em outros clãs:\n")
		bullets(&b, inClan)
	}
	if len(unresolved) > 0 {
		b.WriteString("\nOs seguintes membros não foram encontrados no servidor:\n")
		bullets(&b, unresolved)
	}
	return b.String()
}

func RenderEdited(res clandomain.EditMembershipResult) string {
	verb := "adicionados"
	if res.Action == clandomain.ActionRemove {
		verb = "removidos"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Membros %s com sucesso: %s", verb, mentions(res.Processed))
	if len(res.NotProcessed) > 0 {
		refs := make([]string, 0, len(res.NotProcessed))
		for _, r := range res.NotProcessed {
			refs = append(refs, r.Ref)
		}
		b.WriteString("\nMembros não processados: " + mentions(refs))
	}
	if len(res.AlreadyInClan) > 0 {
		b.WriteString("\nMembros não adicionados por já estarem em um clã:")
		for _, r := range res.AlreadyInClan {
			fmt.Fprintf(&b, "\n- %s | %s", mention(r.Ref), r.ClanName)
		}
	}
	return b.String()
}

func RenderList(resp clandomain.ListResponse) string {
	if len(resp.Clans) == 0 {
		return "Não há clãs cadastrados."
	}

	var b strings.Builder
	b.WriteString("**Lista de Clãs Cadastrados:**\n\n")
	for _, snap := range resp.Clans {
		b.WriteString(RenderSnapshot(snap))
		b.WriteString("\n" + listSeparator + "\n\n")
	}
	if resp.HasMore {
		fmt.Fprintf(&b, "Mais clãs disponíveis. Próxima página: `%s`", resp.NextPageToken)
	}
	return b.String()
}

func asDomainError(err error) (*clandomain.Error, bool) {
	var domainErr *clandomain.Error
	if errors.As(err, &domainErr) && domainErr != nil {
		return domainErr, true
	}
	return nil, false
}

// RenderError converts an operation error into display text and an outcome code.
// Anything that is not a domain error is reported as a generic failure.
func RenderError(command string, err error) (string, string) {
	domainErr, ok := asDomainError(err)
	if !ok {
		return genericFailure(command), "internal_error"
	}

	code := domainErr.Code()
	switch domainErr.Reason {
	case clandomain.ReasonInvalidName:
		return "Erro: O nome do clã não pode ser vazio.", code
	case clandomain.ReasonInvalidTag:
		return "Erro: A TAG do clã não pode ser vazia.", code
	case clandomain.ReasonInvalidAction:
		return "Erro: Ação inválida. Use 'adicionar' ou 'remover'.", code
	case clandomain.ReasonInvalidServer:
		return "Erro: Este comando só pode ser usado dentro de um servidor.", code
	case clandomain.ReasonInvalidPageToken:
		return "Erro: Página inválida.", code
	case clandomain.ReasonInsufficientMembers:
		var b strings.Builder
		b.WriteString("Não foi possível criar um clã com apenas uma pessoa.")
		inClan, unresolved := splitRejected(domainErr.Rejected)
		if len(inClan) > 0 {
			b.WriteString("\nOs seguintes membros já estão em outros clãs:\n")
			bullets(&b, inClan)
		}
		if len(unresolved) > 0 {
			b.WriteString("\nOs seguintes membros não foram encontrados no servidor:\n")
			bullets(&b, unresolved)
		}
		return b.String(), code
	case clandomain.ReasonTooFew:
		return fmt.Sprintf("Erro: O clã deve ter pelo menos %d membros.", clandomain.MinMembers), code
	case clandomain.ReasonTooMany:
		return fmt.Sprintf("Erro: O clã não pode ter mais de %d membros.", clandomain.MaxMembers), code
	case clandomain.ReasonAlreadyInClan:
		return "Erro: Você já está em um clã e não pode criar outro.", code
	case clandomain.ReasonDuplicateName:
		return "Erro: Já existe um clã com esse nome.", code
	case clandomain.ReasonDuplicateTag:
		return "Erro: Já existe um clã com essa TAG.", code
	case clandomain.ReasonConcurrentModification:
		return "Erro: O clã foi alterado por outra operação. Por favor, tente novamente.", code
	case clandomain.ReasonCallerNotInClan:
		if command == NameStatus {
			return "Você não está em nenhum clã.", code
		}
		return "Erro: Você não é membro de nenhum clã.", code
	case clandomain.ReasonUnresolved:
		return fmt.Sprintf("Erro: Não foi possível identificar o membro %s.", mention(domainErr.Ref)), code
	case clandomain.ReasonNotAdmin:
		return "Você não tem permissão para usar este comando. Apenas administradores podem listar todos os clãs.", code
	default:
		return genericFailure(command), code
	}
}

func genericFailure(command string) string {
	switch command {
	case NameStatus:
		return "Ocorreu um erro ao buscar as informações do clã."
	case NameCreate:
		return "Ocorreu um erro ao criar o clã. Por favor, tente novamente mais tarde."
	case NameEdit:
		return "Ocorreu um erro ao editar os membros do clã. Por favor, tente novamente mais tarde."
	case NameList:
		return "Ocorreu um erro ao listar os clãs. Por favor, tente novamente mais tarde."
	default:
		return "Ocorreu um erro ao executar o comando. Por favor, tente novamente mais tarde."
	}
}
