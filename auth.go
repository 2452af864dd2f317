package asks

import (
	"github.com/frankli0324/go-asks/internal/auth"
	"github.com/frankli0324/go-asks/internal/cookies"
	"github.com/frankli0324/go-asks/internal/model"
)

type Auth = model.Auth
type AuthKind = model.AuthKind

const (
	PreResponse  = model.PreResponse
	PostResponse = model.PostResponse
)

type Basic = auth.Basic
type Bearer = auth.Bearer
type Digest = auth.Digest
type PreFunc = auth.PreFunc
type PostFunc = auth.PostFunc

// StaticToken authorizes every request with the same bearer token.
func StaticToken(token string) *Bearer { return auth.StaticToken(token) }

type CookieJar = model.CookieJar
type Tracker = cookies.Tracker

func NewTracker() *Tracker { return cookies.NewTracker() }
