package authserver

// ResponseType the type of authorization request
type ResponseType string

// define the type of authorization request
const (
	Code  ResponseType = "code"
	Token ResponseType = "token"
)

func (rt ResponseType) String() string {
	if rt == Code || rt == Token {
		return string(rt)
	}
	return ""
}

// ResponseMode the mechanism used to return authorization response parameters
type ResponseMode string

// define the supported response modes
const (
	Query    ResponseMode = "query"
	Fragment ResponseMode = "fragment"
	FormPost ResponseMode = "form_post"
)

func (rm ResponseMode) String() string {
	if rm == Query || rm == Fragment || rm == FormPost {
		return string(rm)
	}
	return ""
}

// GrantType authorization model
type GrantType string

// define authorization model
const (
	AuthorizationCode   GrantType = "authorization_code"
	PasswordCredentials GrantType = "password"
	ClientCredentials   GrantType = "client_credentials"
	Refreshing          GrantType = "refresh_token"
	Implicit            GrantType = "__implicit"
)

func (gt GrantType) String() string {
	if gt == AuthorizationCode ||
		gt == PasswordCredentials ||
		gt == ClientCredentials ||
		gt == Refreshing {
		return string(gt)
	}
	return ""
}

// TokenKind the kind of token minted by the issuer
type TokenKind string

// define token kinds, each with an independently configurable lifetime
const (
	KindAccess   TokenKind = "access"
	KindIdentity TokenKind = "identity"
	KindRefresh  TokenKind = "refresh"
)
