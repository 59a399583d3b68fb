// Package gcp builds authenticated client options for Google APIs.
package gcp

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"grn-sheet-sync-go/internal/config"
)

// Scopes needed by the mailbox, archive and spreadsheet clients.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	drive.DriveScope,
	sheets.SpreadsheetsScope,
}

// OAuthConfig returns the installed-app OAuth2 config for the user account.
func OAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
	}
}

// UserOptions authenticates as the mailbox owner with a stored refresh token.
func UserOptions(ctx context.Context, cfg config.GoogleConfig) []option.ClientOption {
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	return []option.ClientOption{option.WithTokenSource(OAuthConfig(cfg).TokenSource(ctx, token))}
}

// ServiceOptions authenticates the Cloud clients. An inline JSON document or
// a file path are both accepted; with neither, application default
// credentials apply.
func ServiceOptions(cfg config.GoogleConfig) []option.ClientOption {
	creds := strings.TrimSpace(cfg.CredentialsFile)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
