package jama

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the bearer token used to authenticate API requests.
	// Jama can omit it even on a 200 answer; callers must tolerate an
	// empty value.
	AccessToken string `json:"access_token"`

	// TokenType is "bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// TokenReply is the raw outcome of a token request. StatusCode and RawBody
// are always populated from the HTTP response; Token is non-nil exactly
// when the endpoint answered 200.
type TokenReply struct {
	StatusCode int
	RawBody    []byte
	Token      *TokenResponse
}

// AccessToken returns the granted token, or "" when the grant failed or
// the field was absent.
func (r *TokenReply) AccessToken() string {
	if r.Token == nil {
		return ""
	}
	return r.Token.AccessToken
}

// ============================================================================
// Project Types
// ============================================================================

// Project is a single Jama project record. Only the fields the diagnostic
// displays are decoded; the instance returns many more.
type Project struct {
	// ID is the numeric project identifier
	ID int64 `json:"id"`

	// ProjectKey is the short human-assigned key (e.g. "PROJ")
	ProjectKey string `json:"projectKey"`

	// IsFolder marks folder placeholder entries mixed into the listing
	IsFolder bool `json:"isFolder"`

	// Fields carries the editable item fields; name is the one we show
	Fields ProjectFields `json:"fields"`
}

// ProjectFields is the nested editable-fields object on a project.
type ProjectFields struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PageInfo describes result paging for list endpoints.
type PageInfo struct {
	StartIndex   int `json:"startIndex"`
	ResultCount  int `json:"resultCount"`
	TotalResults int `json:"totalResults"`
}

// PageMeta is the standard Jama REST meta envelope.
type PageMeta struct {
	Status   string    `json:"status"`
	PageInfo *PageInfo `json:"pageInfo,omitempty"`
}

// ProjectPage is the projects list response envelope. Data can be absent
// entirely; callers treat that as zero projects.
type ProjectPage struct {
	Meta PageMeta  `json:"meta"`
	Data []Project `json:"data"`
}

// ProjectsReply is the raw outcome of a projects request, mirroring
// TokenReply.
type ProjectsReply struct {
	StatusCode int
	RawBody    []byte
	Page       *ProjectPage
}

// Count reports the number of projects in the reply, zero when the data
// array was absent.
func (r *ProjectsReply) Count() int {
	if r.Page == nil {
		return 0
	}
	return len(r.Page.Data)
}

// Projects returns the decoded project records, nil when the data array
// was absent.
func (r *ProjectsReply) Projects() []Project {
	if r.Page == nil {
		return nil
	}
	return r.Page.Data
}
