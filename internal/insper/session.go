// Package insper implements the authenticated client for the upstream
// academic portal: the login handshake (Session), the academic profile
// lookup (ProfileFetcher), and the monthly-paged calendar scrape
// (Scraper).
package insper

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/crypto"
	"github.com/felipeadeildo/insper-sync/internal/syncerr"
)

const (
	authPath = "/AOnline/auth"
	testPath = "/AOnline/#/login"

	dataGetTimeout  = 30 * time.Second
	connTestTimeout = 10 * time.Second
)

// noUserAgentTransport strips any User-Agent the default transport
// would otherwise add. The portal blocks requests carrying a
// recognisable User-Agent; this is an externally imposed, load-bearing
// quirk (spec §4.2, §9).
type noUserAgentTransport struct {
	base http.RoundTripper
}

func (t *noUserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Del("User-Agent")
	return t.base.RoundTrip(req)
}

// Session is a cookie-bearing HTTP session against the upstream portal.
type Session struct {
	baseURL    string
	httpClient *http.Client
	encryptor  *crypto.PasswordEncryptor

	UserData UserData // populated after a successful Login
}

// NewSession builds a Session against baseURL (e.g.
// "https://sga.insper.edu.br"), sharing its cookie jar with the given
// PasswordEncryptor's PublicKeyCache by using the same client is left
// to the caller; encryptor is used to encrypt plaintext passwords on
// interactive login.
func NewSession(baseURL string, encryptor *crypto.PasswordEncryptor) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Jar:       jar,
		Transport: &noUserAgentTransport{base: http.DefaultTransport},
	}

	return &Session{baseURL: baseURL, httpClient: client, encryptor: encryptor}, nil
}

// HTTPClient exposes the underlying client so collaborators that need
// the same cookie jar (the PublicKeyCache warm-up, for instance) can
// share it.
func (s *Session) HTTPClient() *http.Client { return s.httpClient }

// warmUp issues the initial GET that establishes the portal's session
// cookies. It must run before login or the public-key fetch.
func (s *Session) warmUp() error {
	resp, err := s.httpClient.Get(s.baseURL + authPath)
	if err != nil {
		return syncerr.NewConnectionError("warm-up", err)
	}
	defer resp.Body.Close()
	return nil
}

// TestConnection reports whether the portal is reachable. Per spec
// §9's documented quirk, the tested path carries a URL fragment
// ("/AOnline/#/login") that HTTP never transmits, so this is
// effectively a GET of "/AOnline/". The behaviour is preserved as
// specified rather than "fixed".
func (s *Session) TestConnection() bool {
	client := &http.Client{
		Jar:       s.httpClient.Jar,
		Transport: s.httpClient.Transport,
		Timeout:   connTestTimeout,
	}
	resp, err := client.Get(s.baseURL + testPath)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Login authenticates against the portal. If encryptPassword is true,
// password is treated as plaintext and RSA-encrypted first (the
// interactive setup flow); otherwise password is assumed to already be
// the stored ciphertext. Success requires both HTTP 200 and a
// "user-data" cookie in the response, which is parsed into s.UserData.
func (s *Session) Login(username, password string, encryptPassword bool) (bool, error) {
	if err := s.warmUp(); err != nil {
		return false, err
	}

	submitted := password
	if encryptPassword {
		ciphertext, err := s.encryptor.Encrypt(password)
		if err != nil {
			return false, err
		}
		submitted = ciphertext
	}

	form := url.Values{"username": {username}, "password": {submitted}}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+authPath, strings.NewReader(form.Encode()))
	if err != nil {
		return false, syncerr.NewAuthError("login", err, false)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, syncerr.NewConnectionError("login", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	userDataCookie := findCookie(resp.Cookies(), "user-data")
	if userDataCookie == "" {
		if u := s.httpClient.Jar.Cookies(mustParseURL(s.baseURL)); u != nil {
			userDataCookie = findCookie(u, "user-data")
		}
	}

	ok := resp.StatusCode == http.StatusOK && userDataCookie != ""
	if !ok {
		invalidated := resp.StatusCode == http.StatusUnauthorized
		return false, syncerr.NewAuthError("login", errInvalidCredentials, invalidated)
	}

	userData, err := parseUserDataCookie(userDataCookie)
	if err != nil {
		return false, syncerr.NewAuthError("parse user-data cookie", err, false)
	}
	s.UserData = userData

	return true, nil
}

// AuthedGet issues an authenticated GET against path using the
// accumulated cookie jar, with a 30-second timeout.
func (s *Session) AuthedGet(path string) (*http.Response, error) {
	client := &http.Client{
		Jar:       s.httpClient.Jar,
		Transport: s.httpClient.Transport,
		Timeout:   dataGetTimeout,
	}
	resp, err := client.Get(s.baseURL + path)
	if err != nil {
		return nil, syncerr.NewConnectionError("authed GET "+path, err)
	}
	return resp, nil
}

func findCookie(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func parseUserDataCookie(raw string) (UserData, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return UserData{}, err
	}
	var data UserData
	if err := json.Unmarshal(decoded, &data); err != nil {
		return UserData{}, err
	}
	return data, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}

var errInvalidCredentials = errors.New("invalid credentials or malformed response")
