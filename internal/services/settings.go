package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/common"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/resolver"
)

// MailboxSettings is the editable part of a mailbox account.
type MailboxSettings struct {
	Active         bool
	Host           string
	Port           int
	Protocol       string
	AuthBk         string
	Folder         string
	ArchiveFolder  string
	PostFetch      string
	FetchFrequency int
	MaxFetch       int
}

// SMTPSettings is the editable part of an SMTP account.
type SMTPSettings struct {
	Active        bool
	Host          string
	Port          int
	AuthBk        string
	AllowSpoofing bool
}

// selectAuthBk returns the identifier to store for a requested backend. A
// scheme prefix such as "oauth2" keeps the configured "oauth2:google".
func selectAuthBk(a *models.Account, requested string) string {
	if requested != "" && a.AuthBk != "" && authbk.Matches(requested, a.AuthBk) {
		return a.AuthBk
	}
	return requested
}

// UpdateMailbox validates in, proves the credentials against the server when
// the account is active and saves. Nothing is saved when a field error is
// returned.
func (s *AccountService) UpdateMailbox(ctx context.Context, identity *models.Identity, in MailboxSettings) error {
	a := identity.Mailbox
	if a == nil {
		return fmt.Errorf("identity %d has no mailbox account: %w", identity.ID, common.ErrNotFound)
	}
	in.Protocol = strings.ToUpper(strings.TrimSpace(in.Protocol))
	in.PostFetch = strings.ToLower(strings.TrimSpace(in.PostFetch))

	errs := common.ValidationErrors{}
	if in.Active {
		if in.Host == "" {
			errs.Add("host", "host name required")
		}
		if in.Port <= 0 {
			errs.Add("port", "port required")
		}
		switch in.Protocol {
		case "":
			errs.Add("protocol", "select protocol")
		case models.ProtocolIMAP, models.ProtocolPOP:
		default:
			errs.Add("protocol", "invalid protocol")
		}
		if in.AuthBk == "" {
			errs.Add("auth_bk", "select authentication")
		}
		if in.FetchFrequency <= 0 {
			errs.Add("fetch_frequency", "fetch interval required")
		}
		if in.MaxFetch <= 0 {
			errs.Add("max_fetch", "maximum emails required")
		}
		if in.Protocol == models.ProtocolPOP && in.Folder != "" {
			errs.Add("folder", "POP mail servers do not support folders")
		}
		if in.PostFetch == "" {
			errs.Add("post_fetch", "indicate what to do with fetched emails")
		}
	}
	switch in.PostFetch {
	case "", models.PostFetchDelete:
	case models.PostFetchArchive:
		switch {
		case in.Protocol == models.ProtocolPOP:
			errs.Add("post_fetch", "POP mail servers do not support folders")
		case in.ArchiveFolder == "":
			errs.Add("post_fetch", "valid folder required")
		case strings.EqualFold(in.Folder, in.ArchiveFolder):
			errs.Add("post_fetch", "archive folder cannot be same as fetched folder")
		}
	default:
		errs.Add("post_fetch", "unknown post-fetch action")
	}

	scope := resolver.NewScope()
	var cred credentials.Credential
	if in.AuthBk != "" && s.resolver.Registry().Validate(in.AuthBk, false) != nil {
		errs.Add("auth_bk", "unsupported authentication")
	} else if in.AuthBk != "" {
		var err error
		if cred, err = s.resolver.FreshCredentials(ctx, scope, a, in.AuthBk); err != nil {
			return err
		}
		if cred == nil {
			errs.Add("auth_bk", "configure authentication")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	next := *a
	next.Active = in.Active
	next.Host = in.Host
	next.Port = in.Port
	next.Protocol = in.Protocol
	next.AuthBk = selectAuthBk(a, in.AuthBk)
	next.Folder = in.Folder
	next.FetchFrequency = in.FetchFrequency
	if next.FetchFrequency <= 0 {
		next.FetchFrequency = 5
	}
	next.MaxFetch = in.MaxFetch
	if next.MaxFetch <= 0 {
		next.MaxFetch = 30
	}
	next.PostFetch = in.PostFetch
	next.ArchiveFolder = ""
	if in.PostFetch == models.PostFetchArchive {
		next.ArchiveFolder = in.ArchiveFolder
	}
	next.ResetActivity()

	if next.Active && cred != nil {
		s.probeMailbox(ctx, &next, cred, errs)
		if err := errs.Err(); err != nil {
			return err
		}
	}

	if err := s.repomanager.Accounts(s.db).Update(ctx, &next); err != nil {
		return fmt.Errorf("error saving mailbox account: %w", err)
	}
	*a = next
	s.logger.Info(ctx, "mailbox account updated", "account", a.ID, "state", a.State())
	return nil
}

func (s *AccountService) probeMailbox(ctx context.Context, a *models.Account, cred credentials.Credential, errs common.ValidationErrors) {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	mb, err := s.dialer.DialMailbox(ctx, a, cred)
	if err != nil {
		s.logger.Warn(ctx, "mailbox probe failed", "account", a.ID, "error", err)
		errs.Add("auth", err.Error())
		return
	}
	defer mb.Close()

	if a.Folder != "" {
		ok, err := mb.HasFolder(ctx, a.Folder)
		if err != nil {
			errs.Add("folder", err.Error())
			return
		}
		if !ok {
			errs.Add("folder", "unknown folder")
		}
	}
	if a.ArchiveFolder != "" && a.Protocol == models.ProtocolIMAP {
		ok, err := mb.HasFolder(ctx, a.ArchiveFolder)
		if err == nil && !ok {
			err = mb.CreateFolder(ctx, a.ArchiveFolder)
		}
		if err != nil {
			errs.Add("archive_folder", "unable to create folder")
		}
	}
}

// UpdateSMTP validates in, authenticates against the server when the account
// is active and saves.
func (s *AccountService) UpdateSMTP(ctx context.Context, identity *models.Identity, in SMTPSettings) error {
	a := identity.SMTP
	if a == nil {
		return fmt.Errorf("identity %d has no smtp account: %w", identity.ID, common.ErrNotFound)
	}

	errs := common.ValidationErrors{}
	scope := resolver.NewScope()
	var cred credentials.Credential
	var err error

	switch {
	case in.AuthBk != "" && s.resolver.Registry().Validate(in.AuthBk, true) != nil:
		errs.Add("auth_bk", "unsupported authentication")
	case in.Active:
		if in.Host == "" {
			errs.Add("host", "host name required")
		}
		if in.Port <= 0 {
			errs.Add("port", "port required")
		}
		if in.AuthBk == "" {
			errs.Add("auth_bk", "select authentication")
		} else if cred, err = s.smtpCredentials(ctx, scope, a, in.AuthBk); err != nil {
			return err
		} else if cred == nil {
			if strings.EqualFold(in.AuthBk, string(authbk.Mailbox)) {
				errs.Add("auth_bk", "configure mailbox authentication")
			} else {
				errs.Add("auth_bk", "configure authentication")
			}
		}
	// "mailbox" is the default and is only verified once the account is active
	case in.AuthBk != "" && !strings.EqualFold(in.AuthBk, string(authbk.Mailbox)):
		if cred, err = s.smtpCredentials(ctx, scope, a, in.AuthBk); err != nil {
			return err
		}
		if cred == nil {
			errs.Add("auth_bk", "configure authentication")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	next := *a
	next.Active = in.Active
	next.Host = in.Host
	next.Port = in.Port
	next.Protocol = models.ProtocolSMTP
	next.AuthBk = selectAuthBk(a, in.AuthBk)
	next.AllowSpoofing = in.AllowSpoofing
	next.ResetActivity()

	if next.Active && cred != nil {
		pctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
		conn, err := s.dialer.DialSMTP(pctx, &next, cred)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "smtp probe failed", "account", a.ID, "error", err)
			errs.Add("auth", err.Error())
			return errs
		}
		_ = conn.Close()
	}

	if err := s.repomanager.Accounts(s.db).Update(ctx, &next); err != nil {
		return fmt.Errorf("error saving smtp account: %w", err)
	}
	*a = next
	s.logger.Info(ctx, "smtp account updated", "account", a.ID, "state", a.State())
	return nil
}

// smtpCredentials resolves "mailbox" and "none" directly, as they carry no
// stored credentials of their own and need not be the configured backend yet.
func (s *AccountService) smtpCredentials(ctx context.Context, scope *resolver.Scope, a *models.Account, authBk string) (credentials.Credential, error) {
	switch authbk.SchemeOf(authBk) {
	case authbk.Mailbox:
		if a.Identity == nil || a.Identity.Mailbox == nil {
			return nil, nil
		}
		return s.resolver.FreshCredentials(ctx, scope, a.Identity.Mailbox, "")
	case authbk.None:
		return credentials.NoAuth{Username: a.Address()}, nil
	}
	return s.resolver.FreshCredentials(ctx, scope, a, authBk)
}
