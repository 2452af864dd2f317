package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/frankli0324/go-asks/internal/model"
)

// Bearer sends the token of an oauth2.TokenSource. The source decides when
// a token is refreshed; wrap it with oauth2.ReuseTokenSource to cache.
type Bearer struct {
	Source oauth2.TokenSource
}

// StaticToken returns a Bearer that always sends token.
func StaticToken(token string) *Bearer {
	return &Bearer{Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})}
}

func (*Bearer) Kind() model.AuthKind { return model.PreResponse }

func (b *Bearer) Authorize(context.Context, *model.Response, *model.Request) (http.Header, error) {
	tok, err := b.Source.Token()
	if err != nil {
		return nil, err
	}
	return http.Header{"Authorization": {tok.Type() + " " + tok.AccessToken}}, nil
}
