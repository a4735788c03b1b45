package auth

const (
	ScopeOpenID      = "openid"
	ScopeProfile     = "profile"
	ScopeEmail       = "email"
	ScopeAssessRead  = "assess:read"
	ScopeAssessWrite = "assess:write"
)

// AllScopes defines the full set of scopes used by API clients.
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeAssessRead,
	ScopeAssessWrite,
}
