package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/client/models"
	"github.com/dmitrijs2005/zyplyctl/internal/client/tokeninfo"
)

// savedAter is implemented by stores that remember when the token was
// written.
type savedAter interface {
	SavedAt(ctx context.Context) (time.Time, bool, error)
}

func (a *App) getStatus() string {
	s := a.session.Snapshot()
	if s.User != nil {
		return "(" + s.User.Email + ") "
	}
	return "(" + string(s.State()) + ") "
}

// Status prints the session state and what is known about the stored
// token. Token claims are decoded locally and not verified.
func (a *App) Status(ctx context.Context) error {
	s := a.session.Snapshot()

	a.printf("API:     %s\n", a.config.APIBaseURL)
	a.printf("Profile: %s\n", a.config.Profile)
	a.printf("State:   %s\n", s.State())
	if s.User != nil {
		a.printf("User:    #%d %s <%s>\n", s.User.ID, s.User.Name, s.User.Email)
	}
	if s.Degraded {
		a.printf("Note:    signed in via redirect, profile not loaded yet\n")
	}

	token, ok, err := a.tokens.Read(ctx)
	if err != nil {
		a.printf("Token:   unreadable (%v)\n", err)
		return nil
	}
	if !ok {
		a.printf("Token:   none\n")
		return nil
	}

	line := "stored"
	if sa, isSA := a.tokens.(savedAter); isSA {
		if at, found, err := sa.SavedAt(ctx); err == nil && found {
			line += ", saved " + at.Local().Format(time.RFC3339)
		}
	}

	info, err := tokeninfo.Inspect(token)
	switch {
	case errors.Is(err, tokeninfo.ErrNotJWT):
		line += ", opaque"
	case err != nil:
		return err
	case info.Expired(time.Now()):
		line += ", expired " + info.ExpiresAt.Local().Format(time.RFC3339)
	case info.HasExpiry:
		line += ", expires in " + info.Remaining(time.Now()).Round(time.Minute).String()
	}
	a.printf("Token:   %s\n", line)
	return nil
}

// Profile shows the profile document, or edits it with "profile edit".
func (a *App) Profile(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] != "edit" {
		return errors.New("usage: profile [edit]")
	}

	if len(args) == 0 {
		var p models.Profile
		err := a.session.Guard(ctx, func(ctx context.Context) (err error) {
			p, err = a.api.Profile(ctx)
			return err
		})
		if err != nil {
			return err
		}
		a.printProfile(p)
		return nil
	}

	fields, err := GetFields(a.reader, "Profile fields to update", a.out)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		a.printf("Nothing to update\n")
		return nil
	}

	update := make(models.Profile, len(fields))
	for k, v := range fields {
		update[k] = v
	}
	var p models.Profile
	err = a.session.Guard(ctx, func(ctx context.Context) (err error) {
		p, err = a.api.UpdateProfile(ctx, update)
		return err
	})
	if err != nil {
		return err
	}
	a.printProfile(p)
	return nil
}

func (a *App) printProfile(p models.Profile) {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		a.printf("%s  %s\n", k+strings.Repeat(" ", width-len(k)), formatValue(p[k]))
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "-"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
