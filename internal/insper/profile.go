package insper

import (
	"encoding/json"
	"fmt"

	"github.com/felipeadeildo/insper-sync/internal/syncerr"
)

// ProfileFetcher retrieves the caller's academic profile from an
// authenticated Session.
type ProfileFetcher struct {
	session *Session
}

// NewProfileFetcher builds a fetcher against an authenticated session.
func NewProfileFetcher(session *Session) *ProfileFetcher {
	return &ProfileFetcher{session: session}
}

// GetAcademicData fetches the student record for portalID. Returns nil
// (no error) if the envelope's content array is absent or empty, per
// spec §4.3. HTTP or parse failures raise an AuthError.
func (f *ProfileFetcher) GetAcademicData(portalID string) (*AcademicData, error) {
	path := fmt.Sprintf("/AOnline/apix/api/rest/alunos/user/%s", portalID)

	resp, err := f.session.AuthedGet(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, syncerr.NewAuthError("fetch academic profile", fmt.Errorf("unexpected status %d", resp.StatusCode), false)
	}

	var envelope profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, syncerr.NewAuthError("parse academic profile", err, false)
	}

	if len(envelope.Content) == 0 {
		return nil, nil
	}

	profile := envelope.Content[0]
	return &profile, nil
}
