// Package family resolves the two-party wallet-sharing relationship and
// owns the link lifecycle commands.
package family

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"goighem/internal/core"
	"goighem/internal/log"
	"goighem/internal/store"
)

var (
	ErrUserNotFound     = errors.New("no account with that email")
	ErrAlreadyConnected = errors.New("already connected to a family wallet")
	ErrLinkNotFound     = errors.New("family link not found")
)

// Status of the current user's sharing relationship.
type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusConnected Status = "connected"
)

// Request is an incoming pending link with its requester resolved.
type Request struct {
	Link      core.FamilyLink
	Requester core.User
}

// State is the resolved relationship for one user.
type State struct {
	Status   Status
	Link     *core.FamilyLink
	Partner  *core.User
	Incoming []Request
}

// Connected reports whether a partner wallet is currently linked.
func (s State) Connected() bool { return s.Status == StatusConnected }

// PartnerID returns the linked partner's id, empty when not connected.
func (s State) PartnerID() string {
	if s.Partner == nil {
		return ""
	}
	return s.Partner.ID
}

type Service struct {
	links  store.FamilyStore
	users  store.UserStore
	logger *log.Logger
}

func NewService(links store.FamilyStore, users store.UserStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(nil, log.ComponentFamily)
	}
	return &Service{links: links, users: users, logger: logger}
}

// Resolve determines the relationship state for userID. Priority is strict:
// a connected link wins, then incoming pending requests, then an outgoing
// pending request, then none. Lookup failures resolve to none rather than
// erroring so a flaky read never blocks the rest of the app.
func (s *Service) Resolve(ctx context.Context, userID string) State {
	link, err := s.links.ConnectedLink(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "connected-link lookup failed, treating as none",
			log.FieldUserID, userID, log.FieldError, err.Error())
		return State{Status: StatusNone}
	}
	if link != nil {
		partner, err := s.users.GetUser(ctx, link.Other(userID))
		if err != nil {
			s.logger.WarnContext(ctx, "partner lookup failed, treating as none",
				log.FieldUserID, userID, log.FieldError, err.Error())
			return State{Status: StatusNone}
		}
		return State{Status: StatusConnected, Link: link, Partner: &partner}
	}

	incoming, err := s.links.PendingLinksTo(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "incoming-links lookup failed, treating as none",
			log.FieldUserID, userID, log.FieldError, err.Error())
		return State{Status: StatusNone}
	}
	if len(incoming) > 0 {
		// Recipient must explicitly accept; status stays none until then.
		reqs := make([]Request, 0, len(incoming))
		for _, l := range incoming {
			requester, err := s.users.GetUser(ctx, l.RequesterID)
			if err != nil {
				s.logger.WarnContext(ctx, "requester lookup failed, skipping request",
					"link_id", l.ID, log.FieldError, err.Error())
				continue
			}
			reqs = append(reqs, Request{Link: l, Requester: requester})
		}
		return State{Status: StatusNone, Incoming: reqs}
	}

	outgoing, err := s.links.PendingLinksFrom(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "outgoing-links lookup failed, treating as none",
			log.FieldUserID, userID, log.FieldError, err.Error())
		return State{Status: StatusNone}
	}
	if len(outgoing) > 0 {
		l := outgoing[0]
		return State{Status: StatusPending, Link: &l}
	}

	return State{Status: StatusNone}
}

// Request sends a link request to the account behind targetEmail. Self-link
// is rejected before any write.
func (s *Service) Request(ctx context.Context, userID, targetEmail string) (core.FamilyLink, error) {
	target, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(targetEmail))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.FamilyLink{}, ErrUserNotFound
		}
		return core.FamilyLink{}, fmt.Errorf("look up %q: %w", targetEmail, err)
	}
	if target.ID == userID {
		return core.FamilyLink{}, core.ErrSelfLink
	}

	if existing, err := s.links.ConnectedLink(ctx, userID); err == nil && existing != nil {
		return core.FamilyLink{}, ErrAlreadyConnected
	}

	link := core.FamilyLink{
		RequesterID: userID,
		RecipientID: target.ID,
		Status:      core.LinkPending,
	}
	if err := link.Validate(); err != nil {
		return core.FamilyLink{}, err
	}
	created, err := s.links.InsertLink(ctx, link)
	if err != nil {
		return core.FamilyLink{}, fmt.Errorf("create link request: %w", err)
	}
	s.logger.InfoContext(ctx, "link requested", log.FieldUserID, userID, "recipient_id", target.ID)
	return created, nil
}

// Accept marks a pending link connected. Only the recipient may accept.
func (s *Service) Accept(ctx context.Context, userID, linkID string) error {
	links, err := s.links.PendingLinksTo(ctx, userID)
	if err != nil {
		return fmt.Errorf("list pending links: %w", err)
	}
	for _, l := range links {
		if l.ID == linkID {
			if err := s.links.SetLinkStatus(ctx, linkID, core.LinkConnected); err != nil {
				return fmt.Errorf("accept link: %w", err)
			}
			s.logger.InfoContext(ctx, "link accepted", log.FieldUserID, userID, "link_id", linkID)
			return nil
		}
	}
	return ErrLinkNotFound
}

// Decline removes a pending link addressed to userID.
func (s *Service) Decline(ctx context.Context, userID, linkID string) error {
	links, err := s.links.PendingLinksTo(ctx, userID)
	if err != nil {
		return fmt.Errorf("list pending links: %w", err)
	}
	for _, l := range links {
		if l.ID == linkID {
			if err := s.links.DeleteLink(ctx, linkID); err != nil {
				return fmt.Errorf("decline link: %w", err)
			}
			s.logger.InfoContext(ctx, "link declined", log.FieldUserID, userID, "link_id", linkID)
			return nil
		}
	}
	return ErrLinkNotFound
}

// Unlink deletes the link userID is part of, pending or connected. Either
// party may terminate a connected link.
func (s *Service) Unlink(ctx context.Context, userID string) error {
	link, err := s.links.ConnectedLink(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up connected link: %w", err)
	}
	if link == nil {
		outgoing, err := s.links.PendingLinksFrom(ctx, userID)
		if err != nil {
			return fmt.Errorf("list outgoing links: %w", err)
		}
		if len(outgoing) == 0 {
			return ErrLinkNotFound
		}
		link = &outgoing[0]
	}
	if err := s.links.DeleteLink(ctx, link.ID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	s.logger.InfoContext(ctx, "link removed", log.FieldUserID, userID, "link_id", link.ID)
	return nil
}
