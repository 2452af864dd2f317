package internal

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/frankli0324/go-asks/internal/model"
)

// securityLevels orders the schemes a redirect may move between. Moving
// to a lower level, or to a scheme missing here, is a downgrade.
var securityLevels = map[string]int{"http": 0, "https": 1}

var wwwLabel = regexp.MustCompile(`^ww.\.`)

// baseDomain reduces host to its last two labels after dropping a leading
// www-like label, e.g. "www.api.example.com:443" becomes "example.com".
func baseDomain(host string) string {
	if h, err := idna.Lookup.ToASCII(host); err == nil {
		host = h
	}
	host = strings.ToLower(wwwLabel.ReplaceAllString(host, ""))
	labels := strings.Split(host, ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return strings.Join(labels, ".")
}

// authProtect reports whether credentials may follow a redirect from cur
// to next: same base domain and no scheme downgrade.
func authProtect(cur, next *url.URL) bool {
	if baseDomain(cur.Hostname()) != baseDomain(next.Hostname()) {
		return false
	}
	to, ok := securityLevels[next.Scheme]
	if !ok {
		return false
	}
	return to >= securityLevels[cur.Scheme]
}

// redirect decides how resp moves the exchange. It returns the URL to
// re-issue to, or nil when resp is final. A followed redirect rewrites the
// request and records resp in the history.
func (ex *exchange) redirect(resp *model.Response) (*url.URL, error) {
	if ex.redirectsLeft < 0 {
		return nil, ErrTooManyRedirects
	}
	location := strings.TrimSpace(resp.Header.Get("Location"))
	if location == "" {
		return nil, nil
	}
	loc, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBadLocation, location, err)
	}
	next := ex.u.ResolveReference(loc)
	if _, ok := securityLevels[next.Scheme]; !ok {
		return nil, fmt.Errorf("%w %q: unsupported scheme", ErrBadLocation, location)
	}

	if loc.Host != "" && ex.req.Auth != nil && !ex.req.AuthOffDomain && !authProtect(ex.u, next) {
		ex.logger.Debug("asks: redirect suppressed to protect credentials",
			"status", resp.StatusCode, "location", next.String())
		return nil, nil
	}
	ex.logger.Debug("asks: following redirect", "status", resp.StatusCode, "location", next.String())

	switch resp.StatusCode {
	case 303:
		ex.req.Data, ex.req.JSON, ex.req.Files = nil, nil, nil
		ex.req.Method = "GET"
	case 301, 305:
	default:
		ex.req.Method = "GET"
	}
	ex.history = append(ex.history, resp)
	ex.redirectsLeft--
	return next, nil
}
