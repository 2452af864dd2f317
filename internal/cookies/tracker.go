// package cookies keeps cookies between calls of a client.
package cookies

import (
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"github.com/frankli0324/go-asks/internal/model"
)

// Tracker is a model.CookieJar over net/http/cookiejar. Domain matching
// follows the public suffix list, so a site cannot set cookies for a whole
// registry such as co.uk. It is safe for concurrent use.
type Tracker struct {
	jar *cookiejar.Jar
}

func NewTracker() *Tracker {
	// cookiejar.New never fails
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Tracker{jar: jar}
}

// AdditionalCookies returns the stored cookies that apply to u.
func (t *Tracker) AdditionalCookies(u *url.URL) map[string]string {
	cs := t.jar.Cookies(u)
	if len(cs) == 0 {
		return nil
	}
	m := make(map[string]string, len(cs))
	for _, c := range cs {
		m[c.Name] = c.Value
	}
	return m
}

// Store records the cookies parsed on resp, received from u.
func (t *Tracker) Store(u *url.URL, resp *model.Response) {
	if len(resp.Cookies) == 0 {
		return
	}
	t.jar.SetCookies(u, resp.Cookies)
}
