package models

// Identity is the stored identifier triple of a listing. Job Stores return
// these for everything a subject has already seen.
type Identity struct {
	Platform    string `json:"platform"`
	PlatformID  string `json:"platform_id"`
	ExternalURL string `json:"external_url"`
}

// Key returns the dedup key: platform+id when both are set, else the URL.
// An empty key means the listing cannot be deduplicated.
func (i Identity) Key() string {
	if i.Platform != "" && i.PlatformID != "" {
		return "id:" + i.Platform + "\x00" + i.PlatformID
	}
	return i.URLKey()
}

// URLKey returns the URL fallback key, or "".
func (i Identity) URLKey() string {
	if i.ExternalURL == "" {
		return ""
	}
	return "url:" + i.ExternalURL
}

// IdentityOf derives the identity of a candidate. It depends only on the
// candidate's own fields.
func IdentityOf(c Candidate) Identity {
	return Identity{
		Platform:    c.SourcePlatform,
		PlatformID:  c.PlatformID,
		ExternalURL: c.ExternalURL,
	}
}
