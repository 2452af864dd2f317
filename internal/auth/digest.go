package auth

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/frankli0324/go-asks/internal/model"
)

var ErrNoChallenge = errors.New("auth: no digest challenge in WWW-Authenticate")

// Digest is RFC 7616 digest authentication. It is a post-response strategy:
// the realm and nonce come from the 401 response.
type Digest struct {
	Username, Password string
}

func (*Digest) Kind() model.AuthKind { return model.PostResponse }

func (d *Digest) Authorize(_ context.Context, resp *model.Response, req *model.Request) (http.Header, error) {
	var challenge map[string]string
	for _, v := range resp.Header.Values("WWW-Authenticate") {
		if len(v) > 7 && strings.EqualFold(v[:7], "digest ") {
			challenge = ParseChallenge(v[7:])
			break
		}
	}
	if challenge == nil {
		return nil, ErrNoChallenge
	}
	uri := "/"
	if u, err := url.Parse(req.URL); err == nil {
		uri = u.RequestURI()
	}
	cnonce, err := cnonce()
	if err != nil {
		return nil, err
	}
	return http.Header{"Authorization": {d.header(challenge, req.Method, uri, cnonce)}}, nil
}

// ParseChallenge parses the comma separated key=value pairs of a challenge.
// Quoted values may contain commas.
func ParseChallenge(s string) map[string]string {
	result := make(map[string]string)
	for len(s) > 0 {
		s = strings.TrimLeft(s, " ,")
		key, rest, ok := strings.Cut(s, "=")
		if !ok {
			break
		}
		key = strings.ToLower(strings.TrimSpace(key))
		rest = strings.TrimLeft(rest, " ")
		var value string
		if strings.HasPrefix(rest, `"`) {
			end := 1
			for end < len(rest) && rest[end] != '"' {
				if rest[end] == '\\' {
					end++
				}
				end++
			}
			value = strings.ReplaceAll(rest[1:min(end, len(rest))], `\"`, `"`)
			s = rest[min(end+1, len(rest)):]
		} else {
			value, s, _ = strings.Cut(rest, ",")
			value = strings.TrimSpace(value)
		}
		result[key] = value
	}
	return result
}

func (d *Digest) header(c map[string]string, method, uri, cnonce string) string {
	h := md5.New
	algorithm := c["algorithm"]
	if strings.HasPrefix(strings.ToUpper(algorithm), "SHA-256") {
		h = sha256.New
	}
	hexOf := func(s string) string { return hashHex(h, s) }

	ha1 := hexOf(d.Username + ":" + c["realm"] + ":" + d.Password)
	if strings.HasSuffix(strings.ToLower(algorithm), "-sess") {
		ha1 = hexOf(ha1 + ":" + c["nonce"] + ":" + cnonce)
	}
	ha2 := hexOf(method + ":" + uri)

	qop := ""
	for _, q := range strings.Split(c["qop"], ",") {
		if strings.TrimSpace(q) == "auth" {
			qop = "auth"
		}
	}
	const nc = "00000001"
	var response string
	if qop != "" {
		response = hexOf(strings.Join([]string{ha1, c["nonce"], nc, cnonce, qop, ha2}, ":"))
	} else {
		response = hexOf(ha1 + ":" + c["nonce"] + ":" + ha2)
	}

	parts := []string{
		fmt.Sprintf(`username="%s"`, d.Username),
		fmt.Sprintf(`realm="%s"`, c["realm"]),
		fmt.Sprintf(`nonce="%s"`, c["nonce"]),
		fmt.Sprintf(`uri="%s"`, uri),
		fmt.Sprintf(`response="%s"`, response),
	}
	if algorithm != "" {
		parts = append(parts, "algorithm="+algorithm)
	}
	if qop != "" {
		parts = append(parts, "qop="+qop, "nc="+nc, fmt.Sprintf(`cnonce="%s"`, cnonce))
	}
	if opaque, ok := c["opaque"]; ok {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, opaque))
	}
	return "Digest " + strings.Join(parts, ", ")
}

func cnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashHex(h func() hash.Hash, s string) string {
	sum := h()
	sum.Write([]byte(s))
	return hex.EncodeToString(sum.Sum(nil))
}
