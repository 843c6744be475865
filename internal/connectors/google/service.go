package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewDriveService creates a Google Drive API service using the provided TokenSource.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// ActingEmail fetches the email address of the authenticated user.
// Returns "" without error if the About resource omits it.
func ActingEmail(ctx context.Context, svc *drive.Service) (string, error) {
	about, err := svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
	if err != nil {
		return "", WrapError(err)
	}
	if about.User == nil {
		return "", nil
	}
	return about.User.EmailAddress, nil
}
