package types

import "time"

// Usage disambiguates which of the four token kinds a ticket represents.
// A ticket always carries exactly one usage once serialized.
type Usage string

const (
	UsageCode         Usage = "code"
	UsageAccessToken  Usage = "access_token"
	UsageIDToken      Usage = "id_token"
	UsageRefreshToken Usage = "refresh_token"
)

// Well-known ticket property item keys. These live in Properties.Items
// because they travel with the ticket across serialize/deserialize but
// aren't claims an outside party should ever see asserted about the
// subject.
const (
	ItemClientID     = "client_id"
	ItemRedirectURI  = "redirect_uri"
	ItemResource     = "resource"
	ItemScope        = "scope"
	ItemNonce        = "nonce"
	ItemUsage        = "usage"
	ItemConfidential = "confidential"
	ItemAudiences    = "audiences"
	ItemAtHash       = "at_hash"
	ItemCHash        = "c_hash"
)

// Claim destinations: which token kind(s) a given principal claim is
// allowed to be copied into when serializing. name_identifier and sub
// are always retained regardless of destination.
const (
	DestinationAccessToken = "token"
	DestinationIDToken     = "id_token"
)

// Claim is one fact the host asserted about the authenticated principal,
// together with the token kinds it should be copied into when the
// ticket is serialized.
type Claim struct {
	Type         string
	Value        string
	Destinations []string
}

// HasDestination reports whether d is among the claim's destinations.
func (c Claim) HasDestination(d string) bool {
	for _, v := range c.Destinations {
		if v == d {
			return true
		}
	}
	return false
}

// Principal is the claim set describing the authenticated end-user or
// client, analogous to a claims-based identity.
type Principal struct {
	Claims []Claim
}

// NewPrincipal builds a Principal from the given claims.
func NewPrincipal(claims ...Claim) Principal {
	return Principal{Claims: append([]Claim(nil), claims...)}
}

// FindFirst returns the first claim of the given type, if any.
func (p Principal) FindFirst(claimType string) (Claim, bool) {
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c, true
		}
	}
	return Claim{}, false
}

// Add appends a claim to the principal.
func (p *Principal) Add(c Claim) {
	p.Claims = append(p.Claims, c)
}

// Subject returns the "sub" claim, falling back to the main identity's
// name-identifier claim per the spec's main-identity rule.
func (p Principal) Subject() string {
	if c, ok := p.FindFirst("sub"); ok {
		return c.Value
	}
	if c, ok := p.FindFirst("name_identifier"); ok {
		return c.Value
	}
	return ""
}

// FilterFor returns the subset of claims eligible for the given token
// destination: name_identifier and sub are always retained; any other
// claim is retained only when its Destinations include destination.
func (p Principal) FilterFor(destination string) []Claim {
	out := make([]Claim, 0, len(p.Claims))
	for _, c := range p.Claims {
		if c.Type == "name_identifier" || c.Type == "sub" || c.HasDestination(destination) {
			out = append(out, c)
		}
	}
	return out
}

// Properties carries the lifetime and protocol context of a ticket.
type Properties struct {
	IssuedUTC  time.Time
	ExpiresUTC time.Time
	Items      map[string]string
}

// NewProperties returns Properties with an initialized Items map.
func NewProperties() Properties {
	return Properties{Items: make(map[string]string)}
}

func (p *Properties) set(key, value string) {
	if p.Items == nil {
		p.Items = make(map[string]string)
	}
	if value == "" {
		delete(p.Items, key)
		return
	}
	p.Items[key] = value
}

func (p Properties) get(key string) string {
	if p.Items == nil {
		return ""
	}
	return p.Items[key]
}

func (p *Properties) SetUsage(u Usage)       { p.set(ItemUsage, string(u)) }
func (p Properties) GetUsage() Usage         { return Usage(p.get(ItemUsage)) }
func (p *Properties) SetClientID(v string)   { p.set(ItemClientID, v) }
func (p Properties) ClientID() string        { return p.get(ItemClientID) }
func (p *Properties) SetRedirectURI(v string) { p.set(ItemRedirectURI, v) }
func (p Properties) RedirectURI() string      { return p.get(ItemRedirectURI) }
func (p *Properties) SetResource(v string)    { p.set(ItemResource, v) }
func (p Properties) Resource() string         { return p.get(ItemResource) }
func (p *Properties) SetScope(v string)       { p.set(ItemScope, v) }
func (p Properties) Scope() string            { return p.get(ItemScope) }
func (p *Properties) SetNonce(v string)       { p.set(ItemNonce, v) }
func (p Properties) Nonce() string            { return p.get(ItemNonce) }
func (p *Properties) SetConfidential(v bool) {
	if v {
		p.set(ItemConfidential, "true")
		return
	}
	p.set(ItemConfidential, "")
}
func (p Properties) Confidential() bool { return p.get(ItemConfidential) == "true" }
func (p *Properties) SetAudiences(v []string) {
	p.set(ItemAudiences, joinSpace(v))
}
func (p Properties) Audiences() []string { return splitSpace(p.get(ItemAudiences)) }
func (p *Properties) SetAtHash(v string) { p.set(ItemAtHash, v) }
func (p Properties) AtHash() string      { return p.get(ItemAtHash) }
func (p *Properties) SetCHash(v string)  { p.set(ItemCHash, v) }
func (p Properties) CHash() string       { return p.get(ItemCHash) }
func (p Properties) Scopes() []string    { return splitSpace(p.Scope()) }
func (p Properties) HasScope(s string) bool {
	for _, v := range p.Scopes() {
		if v == s {
			return true
		}
	}
	return false
}

func joinSpace(vs []string) string {
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += " "
		}
		out += v
	}
	return out
}

// Ticket is the server's internal representation of an issued token,
// independent of its final wire encoding (opaque or JWT).
//
// Invariants: ExpiresUTC must be strictly after IssuedUTC; Usage is
// never empty once the ticket has been through serialize/deserialize;
// a ticket with Confidential()==true must have originated from an
// authenticated client.
type Ticket struct {
	Principal  Principal
	Properties Properties
	AuthScheme string
}

// NewTicket builds a ticket for the given usage with issued/expires set
// from now and lifetime.
func NewTicket(usage Usage, principal Principal, now time.Time, lifetime time.Duration) *Ticket {
	props := NewProperties()
	props.IssuedUTC = now
	props.ExpiresUTC = now.Add(lifetime)
	props.SetUsage(usage)

	return &Ticket{
		Principal:  principal,
		Properties: props,
		AuthScheme: "Bearer",
	}
}

func (t *Ticket) IsCode() bool         { return t.Properties.GetUsage() == UsageCode }
func (t *Ticket) IsAccessToken() bool  { return t.Properties.GetUsage() == UsageAccessToken }
func (t *Ticket) IsIDToken() bool      { return t.Properties.GetUsage() == UsageIDToken }
func (t *Ticket) IsRefreshToken() bool { return t.Properties.GetUsage() == UsageRefreshToken }

// Expired reports whether the ticket's lifetime has elapsed as of now.
func (t *Ticket) Expired(now time.Time) bool {
	return !t.Properties.ExpiresUTC.After(now)
}

// ExpiresInSeconds rounds the remaining lifetime to the nearest second,
// returning false when the ticket has already expired relative to now.
func (t *Ticket) ExpiresInSeconds(now time.Time) (int64, bool) {
	d := t.Properties.ExpiresUTC.Sub(now)
	if d <= 0 {
		return 0, false
	}
	seconds := d / time.Second
	if d%time.Second >= time.Second/2 {
		seconds++
	}
	return int64(seconds), true
}
